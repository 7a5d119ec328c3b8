package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rastreobus/rastreobus/pkg/auth"
	"github.com/rastreobus/rastreobus/pkg/consumer"
	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes the hub over WebSocket: /tracking for authenticated driver
// connections, /ws for dashboards, plus /metrics and /health.
type Server struct {
	hub    *Hub
	secret []byte
}

func NewServer(hub *Hub) *Server {
	return &Server{
		hub:    hub,
		secret: auth.SigningSecret(),
	}
}

func (s *Server) Listen(listen string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/tracking", s.handleDriver)
	mux.HandleFunc("/ws", s.handleDashboard)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/health", consumer.NewHealthHandler())

	log.Info().Str("listen", listen).Msg("Starting hub server")

	return http.ListenAndServe(listen, mux)
}

// bearerToken pulls the driver credential from the Authorization header or,
// for clients that cannot set headers on the WS handshake, the token query
// parameter.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return r.URL.Query().Get("token")
}

func (s *Server) handleDriver(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.Parse(bearerToken(r), s.secret)
	if err != nil {
		log.Warn().Err(err).Str("ip", r.RemoteAddr).Msg("Rejected driver connection")
		http.Error(w, "invalid auth token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	session := NewSession(RoleDriver, claims.Plate, conn)
	s.hub.Register(session)

	go session.WritePump()
	go s.driverReadPump(session, conn)
}

func (s *Server) driverReadPump(session *Session, conn Conn) {
	defer s.hub.Unregister(session)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var event fleet.Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Warn().Err(err).Str("session", session.ID).Msg("Discarding malformed driver message")
			continue
		}

		if event.Type != fleet.EventTypeFix || event.Fix == nil {
			continue
		}

		err = s.hub.Ingest(context.Background(), session, *event.Fix)
		if err == ErrVehicleMismatch || err == ErrNotDriver {
			// Authorization failure, drop the connection
			return
		}

		session.Send(fleet.Event{Type: fleet.EventTypeFixReceived})
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	session := NewSession(RoleDashboard, "", conn)
	s.hub.Register(session)

	go session.WritePump()

	// Seed the dashboard before any live events so it can catch up on
	// everything it missed while disconnected
	snapshot, err := s.hub.Snapshot(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to build dashboard snapshot")
	} else {
		session.Send(snapshot)
	}

	go s.dashboardReadPump(session, conn)
}

// dashboardReadPump discards inbound frames; dashboards are consumers only.
// It exists to notice the close and tear the session down.
func (s *Server) dashboardReadPump(session *Session, conn Conn) {
	defer s.hub.Unregister(session)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
