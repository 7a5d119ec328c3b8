package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVehicleFixValidate(t *testing.T) {
	validFix := VehicleFix{
		VehicleID: "ABC-123",
		Location:  NewLocation(-70.0219, -15.8402),
		Speed:     5.5,
		Timestamp: time.Now().UnixMilli(),
	}

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, validFix.Validate())
	})

	t.Run("MissingVehicleID", func(t *testing.T) {
		fix := validFix
		fix.VehicleID = ""

		assert.ErrorIs(t, fix.Validate(), ErrMissingVehicleID)
	})

	t.Run("SentinelCoordinates", func(t *testing.T) {
		fix := validFix
		fix.Location = NewLocation(0, 0)

		assert.ErrorIs(t, fix.Validate(), ErrInvalidCoordinates)
	})

	t.Run("NegativeSpeed", func(t *testing.T) {
		fix := validFix
		fix.Speed = -1

		assert.ErrorIs(t, fix.Validate(), ErrNegativeSpeed)
	})
}

func TestVehicleFixTime(t *testing.T) {
	fix := VehicleFix{Timestamp: 1700000000000}

	assert.Equal(t, time.UnixMilli(1700000000000), fix.Time())
}
