package client

import (
	"time"

	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMinDistanceMetres = 4.0
	DefaultMinInterval       = 4000 * time.Millisecond
)

// SamplingPolicy decides which raw positions are worth transmitting. A
// candidate is sent only when the device both moved further than
// MinDistanceMetres from the last transmitted position (or nothing was
// transmitted yet) and MinInterval has elapsed since the last send.
//
// This gate is independent of the server-side staleness gate: this one
// limits chattiness against the last *sent* fix, the store limits state
// regression against the last *stored* one.
type SamplingPolicy struct {
	MinDistanceMetres float64
	MinInterval       time.Duration

	hasLastSent bool
	lastSent    fleet.Location
	lastSentAt  time.Time
}

func NewSamplingPolicy() *SamplingPolicy {
	return &SamplingPolicy{
		MinDistanceMetres: DefaultMinDistanceMetres,
		MinInterval:       DefaultMinInterval,
	}
}

// Reset seeds the interval cursor, typically at connection start, and
// forgets the last transmitted position.
func (p *SamplingPolicy) Reset(now time.Time) {
	p.hasLastSent = false
	p.lastSent = fleet.Location{}
	p.lastSentAt = now
}

// ShouldSend reports whether the candidate should be transmitted and, when
// it should, advances the policy cursor. Skipping the cursor update on an
// accepted candidate would cause redundant transmission.
func (p *SamplingPolicy) ShouldSend(candidate fleet.Location, now time.Time) bool {
	if !candidate.Valid() {
		// Device has no GPS fix yet, or garbage coordinates
		log.Warn().
			Floats64("coordinates", candidate.Coordinates).
			Msg("Dropping candidate with invalid coordinates")
		return false
	}

	if now.Sub(p.lastSentAt) <= p.MinInterval {
		return false
	}

	if p.hasLastSent && candidate.DistanceTo(p.lastSent) <= p.MinDistanceMetres {
		return false
	}

	p.hasLastSent = true
	p.lastSent = candidate
	p.lastSentAt = now

	return true
}
