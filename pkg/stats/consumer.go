package stats

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/adjust/rmq/v5"
	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rs/zerolog/log"
)

// OdometerBatchConsumer folds accepted fixes from the hub's queue into
// per-vehicle daily travelled distance. Losing a batch skews the odometer
// slightly, which is fine; the authoritative record is the fix history.
type OdometerBatchConsumer struct {
	mutex       sync.Mutex
	previousFix map[string]fleet.VehicleFix
}

func NewOdometerBatchConsumer() *OdometerBatchConsumer {
	return &OdometerBatchConsumer{
		previousFix: map[string]fleet.VehicleFix{},
	}
}

func (consumer *OdometerBatchConsumer) Consume(batch rmq.Deliveries) {
	for _, payload := range batch.Payloads() {
		var fix fleet.VehicleFix
		if err := json.Unmarshal([]byte(payload), &fix); err != nil {
			log.Error().Err(err).Msg("Failed to decode fix event")
			continue
		}

		consumer.apply(fix)
	}

	if ackErrors := batch.Ack(); len(ackErrors) > 0 {
		for _, err := range ackErrors {
			log.Error().Err(err).Msg("Failed to ack fix event")
		}
	}
}

func (consumer *OdometerBatchConsumer) apply(fix fleet.VehicleFix) {
	metres, moved := consumer.advance(fix)
	if !moved {
		return
	}

	if err := AddTravelledDistance(context.Background(), fix, metres); err != nil {
		log.Error().Err(err).Str("vehicle", fix.VehicleID).Msg("Failed to update odometer")
	}
}

// advance moves the per-vehicle cursor and returns the distance from the
// superseded fix. Cursor read, distance and update happen under one lock so
// two concurrent batches cannot both measure from the same predecessor and
// double-count the segment.
func (consumer *OdometerBatchConsumer) advance(fix fleet.VehicleFix) (float64, bool) {
	consumer.mutex.Lock()
	defer consumer.mutex.Unlock()

	previous, known := consumer.previousFix[fix.VehicleID]
	if known && fix.Timestamp <= previous.Timestamp {
		return 0, false
	}

	consumer.previousFix[fix.VehicleID] = fix

	if !known {
		return 0, false
	}

	return previous.Location.DistanceTo(fix.Location), true
}
