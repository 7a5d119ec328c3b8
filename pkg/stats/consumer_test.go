package stats

import (
	"sync"
	"testing"

	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/stretchr/testify/assert"
)

func odometerFix(vehicleID string, timestamp int64, latitude float64) fleet.VehicleFix {
	return fleet.VehicleFix{
		VehicleID: vehicleID,
		Location:  fleet.NewLocation(-70.0219, latitude),
		Timestamp: timestamp,
	}
}

func TestOdometerAdvance(t *testing.T) {
	consumer := NewOdometerBatchConsumer()

	t.Run("FirstFixMeasuresNothing", func(t *testing.T) {
		metres, moved := consumer.advance(odometerFix("ABC-123", 1000, -15.8402))

		assert.False(t, moved)
		assert.Equal(t, 0.0, metres)
	})

	t.Run("NewerFixMeasuresFromPrevious", func(t *testing.T) {
		// 0.001 degrees of latitude is ~111.19m
		metres, moved := consumer.advance(odometerFix("ABC-123", 2000, -15.8392))

		assert.True(t, moved)
		assert.InDelta(t, 111.19, metres, 0.5)
	})

	t.Run("OutOfOrderFixIgnored", func(t *testing.T) {
		metres, moved := consumer.advance(odometerFix("ABC-123", 1500, -15.8300))

		assert.False(t, moved)
		assert.Equal(t, 0.0, metres)

		// The cursor must still point at the t=2000 fix
		metres, moved = consumer.advance(odometerFix("ABC-123", 3000, -15.8382))
		assert.True(t, moved)
		assert.InDelta(t, 111.19, metres, 0.5)
	})

	t.Run("VehiclesAreIndependent", func(t *testing.T) {
		_, moved := consumer.advance(odometerFix("XYZ-789", 1000, -15.8402))

		assert.False(t, moved)
	})
}

// Concurrent batches for the same vehicle must not both measure from the
// same predecessor; the summed distance stays the path length.
func TestOdometerAdvanceConcurrent(t *testing.T) {
	consumer := NewOdometerBatchConsumer()
	consumer.advance(odometerFix("ABC-123", 0, -15.8402))

	var mutex sync.Mutex
	total := 0.0

	var group sync.WaitGroup
	for i := 1; i <= 50; i++ {
		group.Add(1)
		go func(step int) {
			defer group.Done()

			fix := odometerFix("ABC-123", int64(step*1000), -15.8402+float64(step)*0.001)
			if metres, moved := consumer.advance(fix); moved {
				mutex.Lock()
				total += metres
				mutex.Unlock()
			}
		}(i)
	}
	group.Wait()

	// Each accepted segment spans at least one 0.001 degree step, and the
	// segments partition the 50 step path without overlap
	assert.InDelta(t, 50*111.19, total, 5)
}
