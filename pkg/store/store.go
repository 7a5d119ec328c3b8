package store

import (
	"context"
	"errors"
	"time"

	"github.com/rastreobus/rastreobus/pkg/fleet"
)

var (
	// ErrStaleFix - the fix timestamp does not exceed the stored state
	ErrStaleFix = errors.New("fix is stale")
)

const DefaultHistoryLimit = 100
const maxHistoryLimit = 500

// LocationStore persists the latest state per vehicle plus an append-only
// fix history.
type LocationStore interface {
	// RecordFix applies the latest-state upsert and the history append as a
	// unit. Returns ErrStaleFix or fleet.ErrInvalidCoordinates on rejection.
	RecordFix(ctx context.Context, fix fleet.VehicleFix) error

	Latest(ctx context.Context, vehicleID string) (*fleet.VehicleState, error)
	LatestAll(ctx context.Context) ([]fleet.VehicleState, error)

	// History returns persisted fixes newest first. A zero since means no
	// lower bound.
	History(ctx context.Context, vehicleID string, limit int64, since time.Time) ([]fleet.FixHistoryEntry, error)

	// Nearby returns vehicle states whose last fix is within maxDistanceMetres
	// of the given point, closest first.
	Nearby(ctx context.Context, longitude float64, latitude float64, maxDistanceMetres float64) ([]fleet.VehicleState, error)
}
