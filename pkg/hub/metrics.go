package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fixesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rastreobus_hub_fixes_accepted_total",
		Help: "Fixes accepted, persisted and broadcast",
	})

	fixesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rastreobus_hub_fixes_rejected_total",
		Help: "Fixes rejected at the ingest boundary",
	}, []string{"reason"})

	storeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rastreobus_hub_store_errors_total",
		Help: "Fixes dropped because the location store write failed",
	})

	broadcastDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rastreobus_hub_broadcast_dropped_total",
		Help: "Per-session broadcast deliveries dropped",
	}, []string{"reason"})

	sessionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rastreobus_hub_sessions",
		Help: "Currently registered sessions",
	}, []string{"role"})
)
