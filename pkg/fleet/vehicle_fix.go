package fleet

import (
	"errors"
	"time"
)

var (
	ErrInvalidCoordinates = errors.New("fix has invalid coordinates")
	ErrMissingVehicleID   = errors.New("fix has no vehicle identifier")
	ErrNegativeSpeed      = errors.New("fix has negative speed")
)

// VehicleFix is one reported vehicle position. Immutable once created.
// Timestamp is producer-assigned epoch milliseconds, Speed is metres/second.
type VehicleFix struct {
	VehicleID string `json:"vehicle_id" bson:"vehicleid" groups:"basic"`

	Location Location `json:"location" bson:"location" groups:"basic"`

	Speed     float64 `json:"speed" bson:"speed" groups:"basic"`
	Timestamp int64   `json:"timestamp" bson:"timestamp" groups:"basic"`

	RouteLabel string `json:"route_label,omitempty" bson:"routelabel,omitempty" groups:"basic"`
}

func (f *VehicleFix) Time() time.Time {
	return time.UnixMilli(f.Timestamp)
}

func (f *VehicleFix) Validate() error {
	if f.VehicleID == "" {
		return ErrMissingVehicleID
	}
	if !f.Location.Valid() {
		return ErrInvalidCoordinates
	}
	if f.Speed < 0 {
		return ErrNegativeSpeed
	}

	return nil
}

// FixHistoryEntry is the persisted form of an accepted fix, keyed by
// (vehicleid, timestamp). Append only.
type FixHistoryEntry struct {
	VehicleID string `json:"vehicle_id" bson:"vehicleid" groups:"basic"`

	Location Location `json:"location" bson:"location" groups:"basic"`

	Speed      float64 `json:"speed" bson:"speed" groups:"basic"`
	Timestamp  int64   `json:"timestamp" bson:"timestamp" groups:"basic"`
	RouteLabel string  `json:"route_label,omitempty" bson:"routelabel,omitempty" groups:"basic"`

	RecordedAt time.Time `json:"recorded_at" bson:"recordedat" groups:"internal"`
}

func NewFixHistoryEntry(fix VehicleFix, recordedAt time.Time) FixHistoryEntry {
	return FixHistoryEntry{
		VehicleID:  fix.VehicleID,
		Location:   fix.Location,
		Speed:      fix.Speed,
		Timestamp:  fix.Timestamp,
		RouteLabel: fix.RouteLabel,
		RecordedAt: recordedAt,
	}
}
