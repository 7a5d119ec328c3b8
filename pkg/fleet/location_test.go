package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationDistanceTo(t *testing.T) {
	origin := NewLocation(-70.0219, -15.8402)

	t.Run("ZeroDistanceToItself", func(t *testing.T) {
		assert.Equal(t, 0.0, origin.DistanceTo(origin))
	})

	t.Run("KnownLatitudeOffset", func(t *testing.T) {
		// 0.001 degrees of latitude is ~111.19m on a 6371km sphere
		other := NewLocation(-70.0219, -15.8392)

		assert.InDelta(t, 111.19, origin.DistanceTo(other), 0.5)
	})

	t.Run("Symmetric", func(t *testing.T) {
		other := NewLocation(-70.0, -15.8)

		assert.InDelta(t, origin.DistanceTo(other), other.DistanceTo(origin), 0.000001)
	})
}

func TestLocationValid(t *testing.T) {
	testCases := []struct {
		name      string
		longitude float64
		latitude  float64
		valid     bool
	}{
		{"CityCentre", -70.0219, -15.8402, true},
		{"ZeroLongitudeOnly", 0, 51.5, true},
		{"NullIslandSentinel", 0, 0, false},
		{"LatitudeTooHigh", -70.0, 90.5, false},
		{"LatitudeTooLow", -70.0, -90.5, false},
		{"LongitudeTooHigh", 180.5, -15.8, false},
		{"LongitudeTooLow", -180.5, -15.8, false},
		{"LatitudePole", 0, 90, true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			location := NewLocation(testCase.longitude, testCase.latitude)

			assert.Equal(t, testCase.valid, location.Valid())
		})
	}

	t.Run("MissingCoordinates", func(t *testing.T) {
		location := Location{Type: "Point"}

		assert.False(t, location.Valid())
	})
}
