package fleet

import "time"

type PresenceStatus string

const (
	// PresenceActive - updated within the active window, show as online
	PresenceActive PresenceStatus = "Active"
	// PresenceStale - known but not updating, show as offline
	PresenceStale PresenceStatus = "Stale"
	// PresenceExpired - candidate for removal from a dashboard working set
	PresenceExpired PresenceStatus = "Expired"
)

const (
	PresenceActiveWindow    = 180 * time.Second
	PresenceRetentionWindow = 600 * time.Second
)

// Presence classifies the vehicle from update recency. Derived on read,
// never persisted.
func (state *VehicleState) Presence(now time.Time) PresenceStatus {
	sinceUpdate := now.Sub(state.UpdatedAt)

	if sinceUpdate <= PresenceActiveWindow {
		return PresenceActive
	}
	if sinceUpdate <= PresenceRetentionWindow {
		return PresenceStale
	}

	return PresenceExpired
}
