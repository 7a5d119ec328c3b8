package fleet

import "time"

// Driver is a registered driver account. Plate doubles as the vehicle
// identifier the driver is allowed to report for.
type Driver struct {
	PrimaryIdentifier string `json:"id" bson:"primaryidentifier" groups:"basic"`

	Name  string `json:"name" bson:"name" groups:"basic"`
	Email string `json:"email" bson:"email" groups:"basic"`
	Plate string `json:"plate" bson:"plate" groups:"basic"`

	PasswordHash string `json:"-" bson:"passwordhash" groups:"internal"`

	CreationDateTime time.Time `json:"-" bson:"creationdatetime" groups:"internal"`
}
