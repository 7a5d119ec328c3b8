package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rastreobus/rastreobus/pkg/redis_client"
	"github.com/redis/go-redis/v9"
)

const odometerKeyFormat = "rastreobus:odometer:%s" // date
const lastSeenKey = "rastreobus:lastseen"

func odometerKey(day time.Time) string {
	return fmt.Sprintf(odometerKeyFormat, day.Format("2006-01-02"))
}

// AddTravelledDistance accumulates metres onto the vehicle's odometer for
// the day the fix belongs to.
func AddTravelledDistance(ctx context.Context, fix fleet.VehicleFix, metres float64) error {
	pipe := redis_client.Client.Pipeline()

	pipe.HIncrByFloat(ctx, odometerKey(fix.Time()), fix.VehicleID, metres)
	pipe.HSet(ctx, lastSeenKey, fix.VehicleID, fix.Timestamp)

	_, err := pipe.Exec(ctx)
	return err
}

// TravelledDistance reads the vehicle's odometer for one day, in metres.
// A vehicle with no recorded travel reads as zero.
func TravelledDistance(ctx context.Context, vehicleID string, day time.Time) (float64, error) {
	value, err := redis_client.Client.HGet(ctx, odometerKey(day), vehicleID).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return value, nil
}
