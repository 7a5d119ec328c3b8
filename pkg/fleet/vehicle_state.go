package fleet

import "time"

// VehicleState is the latest known state for one vehicle. At most one exists
// per VehicleID and UpdatedAt only ever moves forward (last writer by fix
// timestamp wins, not by arrival order).
type VehicleState struct {
	VehicleID string `json:"vehicle_id" bson:"vehicleid" groups:"basic"`

	LastFix VehicleFix `json:"last_fix" bson:"lastfix" groups:"basic"`

	UpdatedAt time.Time `json:"updated_at" bson:"updatedat" groups:"basic"`
}
