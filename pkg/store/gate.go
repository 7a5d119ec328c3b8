package store

import "github.com/rastreobus/rastreobus/pkg/fleet"

// acceptGate is the last-writer-by-timestamp rule for latest state. It is
// deliberately an application-level compare rather than a storage-engine
// conflict clause so the invariant holds independent of the backend.
func acceptGate(current *fleet.VehicleState, fix fleet.VehicleFix) bool {
	if current == nil {
		return true
	}

	return fix.Time().After(current.UpdatedAt)
}
