package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rs/zerolog/log"
)

const workingSetPruneInterval = time.Minute

// WorkingSet is a dashboard's local view of the fleet. It tolerates fixes
// for vehicles it has never seen and out-of-order arrivals, and prunes
// vehicles whose presence window has expired. Purely view state, never
// written back to the store.
type WorkingSet struct {
	mutex    sync.Mutex
	vehicles map[string]fleet.VehicleState
}

func NewWorkingSet() *WorkingSet {
	return &WorkingSet{
		vehicles: map[string]fleet.VehicleState{},
	}
}

// Seed merges snapshot rows into the view. A snapshot is queued behind any
// live fixes broadcast while it was being built, so each row goes through
// the same recency check as Apply instead of overwriting blindly.
func (w *WorkingSet) Seed(states []fleet.VehicleState) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	for _, state := range states {
		existing, known := w.vehicles[state.VehicleID]
		if known && !state.UpdatedAt.After(existing.UpdatedAt) {
			continue
		}

		w.vehicles[state.VehicleID] = state
	}
}

// Apply folds a live fix into the view. A fix older than what we already
// hold is ignored; the hub filters staleness server-side but transport
// reordering can still happen.
func (w *WorkingSet) Apply(fix fleet.VehicleFix) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	existing, known := w.vehicles[fix.VehicleID]
	if known && !fix.Time().After(existing.UpdatedAt) {
		return
	}

	w.vehicles[fix.VehicleID] = fleet.VehicleState{
		VehicleID: fix.VehicleID,
		LastFix:   fix,
		UpdatedAt: fix.Time(),
	}
}

// Prune drops expired vehicles and returns their identifiers.
func (w *WorkingSet) Prune(now time.Time) []string {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	var removed []string
	for vehicleID, state := range w.vehicles {
		if state.Presence(now) == fleet.PresenceExpired {
			delete(w.vehicles, vehicleID)
			removed = append(removed, vehicleID)
		}
	}

	return removed
}

func (w *WorkingSet) Snapshot() []fleet.VehicleState {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	states := make([]fleet.VehicleState, 0, len(w.vehicles))
	for _, state := range w.vehicles {
		states = append(states, state)
	}

	return states
}

func (w *WorkingSet) Get(vehicleID string) (fleet.VehicleState, bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	state, ok := w.vehicles[vehicleID]
	return state, ok
}

// DashboardClient is the consumer side: it seeds its working set from the
// REST latest-state query, then folds in live broadcasts. Missed broadcasts
// are never replayed; reconnecting re-seeds instead.
type DashboardClient struct {
	APIBaseURL string

	Session    *ConnectionSession
	WorkingSet *WorkingSet

	httpClient *http.Client
}

func NewDashboardClient(hubURL string, apiBaseURL string) *DashboardClient {
	return &DashboardClient{
		APIBaseURL: apiBaseURL,
		Session:    NewConnectionSession(hubURL, ""),
		WorkingSet: NewWorkingSet(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DashboardClient) Start(ctx context.Context) {
	if err := d.seed(ctx); err != nil {
		// Not fatal, the hub snapshot event covers us on connect
		log.Warn().Err(err).Msg("Failed to seed dashboard from API")
	}

	d.Session.Connect(ctx)

	go d.consume(ctx)
}

func (d *DashboardClient) seed(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, d.APIBaseURL+"/core/vehicles", nil)
	if err != nil {
		return err
	}

	response, err := d.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("latest state query returned %d", response.StatusCode)
	}

	var states []fleet.VehicleState
	if err := json.NewDecoder(response.Body).Decode(&states); err != nil {
		return err
	}

	d.WorkingSet.Seed(states)

	return nil
}

func (d *DashboardClient) consume(ctx context.Context) {
	pruneTicker := time.NewTicker(workingSetPruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pruneTicker.C:
			if removed := d.WorkingSet.Prune(time.Now()); len(removed) > 0 {
				log.Info().Strs("vehicles", removed).Msg("Pruned expired vehicles from working set")
			}
		case event, open := <-d.Session.Events():
			if !open {
				return
			}

			switch event.Type {
			case fleet.EventTypeSnapshot:
				d.WorkingSet.Seed(event.States)
			case fleet.EventTypeFix:
				if event.Fix != nil {
					d.WorkingSet.Apply(*event.Fix)
				}
			case fleet.EventTypeReconnectFailed:
				log.Error().Msg("Dashboard session gave up reconnecting")
				return
			}
		}
	}
}

func (d *DashboardClient) Close() {
	d.Session.Close()
}
