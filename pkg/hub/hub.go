package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rastreobus/rastreobus/pkg/store"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

var (
	// ErrNotDriver - only driver sessions may submit fixes
	ErrNotDriver = errors.New("session role is not driver")
	// ErrVehicleMismatch - a driver may only report its own vehicle
	ErrVehicleMismatch = errors.New("fix vehicle does not match session vehicle")
)

const broadcastMaxGoroutines = 64

// FixPublisher receives accepted fixes for downstream consumers. Satisfied
// by rmq.Queue.
type FixPublisher interface {
	PublishBytes(payload ...[]byte) error
}

// Hub is the broker between driver sessions and dashboard sessions.
type Hub struct {
	locationStore store.LocationStore
	fixQueue      FixPublisher // optional

	mutex    sync.RWMutex
	sessions map[string]*Session
}

func NewHub(locationStore store.LocationStore, fixQueue FixPublisher) *Hub {
	return &Hub{
		locationStore: locationStore,
		fixQueue:      fixQueue,

		sessions: map[string]*Session{},
	}
}

func (h *Hub) Register(session *Session) {
	h.mutex.Lock()
	h.sessions[session.ID] = session
	h.mutex.Unlock()

	sessionsGauge.WithLabelValues(string(session.Role)).Inc()

	log.Info().
		Str("session", session.ID).
		Str("role", string(session.Role)).
		Str("vehicle", session.VehicleID).
		Msg("Session registered")
}

// Unregister removes the session from the broadcast set and closes it. Safe
// to call concurrently with an in-flight broadcast and safe to call twice.
func (h *Hub) Unregister(session *Session) {
	h.mutex.Lock()
	_, present := h.sessions[session.ID]
	delete(h.sessions, session.ID)
	h.mutex.Unlock()

	session.Close()

	if present {
		sessionsGauge.WithLabelValues(string(session.Role)).Dec()

		log.Info().
			Str("session", session.ID).
			Str("role", string(session.Role)).
			Msg("Session unregistered")
	}
}

// Ingest handles one fix submitted by a driver session: authorize, validate,
// persist, publish, broadcast. Stale fixes are dropped silently; validation
// and persistence failures are logged and counted but never take the hub
// down. Only authorization failures are returned to the caller, which should
// terminate the connection.
func (h *Hub) Ingest(ctx context.Context, session *Session, fix fleet.VehicleFix) error {
	if session.Role != RoleDriver {
		fixesRejected.WithLabelValues("role").Inc()
		return ErrNotDriver
	}

	if fix.VehicleID != session.VehicleID {
		fixesRejected.WithLabelValues("identity").Inc()
		log.Warn().
			Str("session", session.ID).
			Str("sessionvehicle", session.VehicleID).
			Str("fixvehicle", fix.VehicleID).
			Msg("Driver submitted fix for a vehicle not bound to its session")
		return ErrVehicleMismatch
	}

	if err := fix.Validate(); err != nil {
		fixesRejected.WithLabelValues("invalid").Inc()
		log.Warn().Err(err).
			Str("vehicle", fix.VehicleID).
			Msg("Rejected invalid fix")
		return nil
	}

	err := h.locationStore.RecordFix(ctx, fix)
	if err == store.ErrStaleFix {
		// Out of order delivery is expected, drop without noise
		fixesRejected.WithLabelValues("stale").Inc()
		return nil
	}
	if err != nil {
		storeErrors.Inc()
		log.Error().Err(err).
			Str("vehicle", fix.VehicleID).
			Msg("Dropping fix, location store write failed")
		return nil
	}

	fixesAccepted.Inc()

	h.publishFix(fix)
	h.Broadcast(fleet.NewFixEvent(fix))

	return nil
}

func (h *Hub) publishFix(fix fleet.VehicleFix) {
	if h.fixQueue == nil {
		return
	}

	data, err := json.Marshal(fix)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal fix for queue")
		return
	}

	if err := h.fixQueue.PublishBytes(data); err != nil {
		log.Error().Err(err).Msg("Failed to publish fix to queue")
	}
}

// Broadcast delivers the event to every registered dashboard session. Each
// delivery is independent; one failing session never blocks the rest.
func (h *Hub) Broadcast(event fleet.Event) {
	h.mutex.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, session := range h.sessions {
		if session.Role == RoleDashboard {
			targets = append(targets, session)
		}
	}
	h.mutex.RUnlock()

	p := pool.New()
	p.WithMaxGoroutines(broadcastMaxGoroutines)

	for _, session := range targets {
		p.Go(func() {
			err := session.Send(event)
			if err == ErrSlowConsumer {
				broadcastDropped.WithLabelValues("slow").Inc()
				log.Debug().Str("session", session.ID).Msg("Dropped broadcast for slow session")
			} else if err == ErrSessionClosed {
				broadcastDropped.WithLabelValues("closed").Inc()
			} else if err != nil {
				broadcastDropped.WithLabelValues("error").Inc()
				log.Error().Err(err).Str("session", session.ID).Msg("Failed to broadcast to session")
			}
		})
	}

	p.Wait()
}

// Snapshot builds the catch-up event a freshly connected dashboard receives
// before any live fixes.
func (h *Hub) Snapshot(ctx context.Context) (fleet.Event, error) {
	states, err := h.locationStore.LatestAll(ctx)
	if err != nil {
		return fleet.Event{}, err
	}

	return fleet.NewSnapshotEvent(states), nil
}
