package client

import (
	"context"
	"time"

	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rs/zerolog/log"
)

// DriverClient is the producer side: raw device positions go through the
// sampling policy and, when significant, out over the session.
type DriverClient struct {
	VehicleID  string
	RouteLabel string

	Session *ConnectionSession
	Policy  *SamplingPolicy
}

func NewDriverClient(serverURL string, token string, vehicleID string) *DriverClient {
	return &DriverClient{
		VehicleID: vehicleID,
		Session:   NewConnectionSession(serverURL, token),
		Policy:    NewSamplingPolicy(),
	}
}

// Start connects the session and watches its lifecycle. The sampling
// interval cursor is re-seeded on every (re)connect so a reconnect cannot
// trigger an instant burst of sends.
func (d *DriverClient) Start(ctx context.Context) {
	d.Session.Connect(ctx)

	go func() {
		for event := range d.Session.Events() {
			switch event.Type {
			case fleet.EventTypeConnected:
				d.Policy.Reset(time.Now())
				log.Info().Str("vehicle", d.VehicleID).Msg("Driver session connected")
			case fleet.EventTypeDisconnected:
				log.Warn().Str("vehicle", d.VehicleID).Msg("Driver session disconnected")
			case fleet.EventTypeReconnectFailed:
				log.Error().Str("vehicle", d.VehicleID).Msg("Driver session gave up reconnecting")
				return
			case fleet.EventTypeError:
				log.Error().Str("vehicle", d.VehicleID).Str("message", event.Message).Msg("Driver session error")
			}

			if ctx.Err() != nil {
				return
			}
		}
	}()
}

// Report offers a raw device position. Positions filtered out by the policy
// are dropped silently; a position accepted while the session is down is
// lost, which the lossy tracking contract allows.
func (d *DriverClient) Report(latitude float64, longitude float64, speed float64, now time.Time) error {
	location := fleet.NewLocation(longitude, latitude)

	if !d.Policy.ShouldSend(location, now) {
		return nil
	}

	fix := fleet.VehicleFix{
		VehicleID:  d.VehicleID,
		Location:   location,
		Speed:      speed,
		Timestamp:  now.UnixMilli(),
		RouteLabel: d.RouteLabel,
	}

	err := d.Session.Send(fleet.NewFixEvent(fix))
	if err == ErrNotConnected {
		log.Debug().Str("vehicle", d.VehicleID).Msg("Fix lost, session not connected")
	}

	return err
}

func (d *DriverClient) Close() {
	d.Session.Close()
}
