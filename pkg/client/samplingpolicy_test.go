package client

import (
	"testing"
	"time"

	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/stretchr/testify/assert"
)

// 0.0001 degrees of latitude is ~11m, comfortably past the distance gate.
// 0.00003 degrees is ~3.3m, comfortably inside it.
const farOffset = 0.0001
const nearOffset = 0.00003

func TestSamplingPolicyFirstSend(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	candidate := fleet.NewLocation(-70.0219, -15.8402)

	policy := NewSamplingPolicy()
	policy.Reset(start)

	// The interval cursor is seeded at reset, so an immediate candidate
	// waits out the interval even though nothing was sent yet
	assert.False(t, policy.ShouldSend(candidate, start))
	assert.False(t, policy.ShouldSend(candidate, start.Add(2*time.Second)))

	assert.True(t, policy.ShouldSend(candidate, start.Add(5*time.Second)))
}

func TestSamplingPolicyIntervalGate(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	origin := fleet.NewLocation(-70.0219, -15.8402)
	moved := fleet.NewLocation(-70.0219, -15.8402+farOffset)

	policy := NewSamplingPolicy()
	policy.Reset(start)

	sendTime := start.Add(5 * time.Second)
	assert.True(t, policy.ShouldSend(origin, sendTime))

	// Moved far enough but too soon after the last send
	assert.False(t, policy.ShouldSend(moved, sendTime.Add(2*time.Second)))

	// Same candidate once the interval has elapsed
	assert.True(t, policy.ShouldSend(moved, sendTime.Add(5*time.Second)))
}

func TestSamplingPolicyDistanceGate(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	origin := fleet.NewLocation(-70.0219, -15.8402)
	barelyMoved := fleet.NewLocation(-70.0219, -15.8402+nearOffset)

	policy := NewSamplingPolicy()
	policy.Reset(start)

	sendTime := start.Add(5 * time.Second)
	assert.True(t, policy.ShouldSend(origin, sendTime))

	// Interval elapsed but the device has not meaningfully moved
	assert.False(t, policy.ShouldSend(barelyMoved, sendTime.Add(5*time.Second)))
	assert.False(t, policy.ShouldSend(origin, sendTime.Add(10*time.Second)))
}

func TestSamplingPolicyRejectionKeepsCursor(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	origin := fleet.NewLocation(-70.0219, -15.8402)
	moved := fleet.NewLocation(-70.0219, -15.8402+farOffset)

	policy := NewSamplingPolicy()
	policy.Reset(start)

	sendTime := start.Add(5 * time.Second)
	assert.True(t, policy.ShouldSend(origin, sendTime))

	// Rejected at +3s; the cursor must still point at the accepted send,
	// so +4.5s after it clears the interval
	assert.False(t, policy.ShouldSend(moved, sendTime.Add(3*time.Second)))
	assert.True(t, policy.ShouldSend(moved, sendTime.Add(4500*time.Millisecond)))
}

func TestSamplingPolicyInvalidCandidates(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	policy := NewSamplingPolicy()
	policy.Reset(start)

	sentinel := fleet.NewLocation(0, 0)
	outOfRange := fleet.NewLocation(-200, -15.8402)

	assert.False(t, policy.ShouldSend(sentinel, start.Add(time.Hour)))
	assert.False(t, policy.ShouldSend(outOfRange, start.Add(time.Hour)))

	// Invalid candidates never advance the cursor
	valid := fleet.NewLocation(-70.0219, -15.8402)
	assert.True(t, policy.ShouldSend(valid, start.Add(time.Hour)))
}

func TestSamplingPolicyResetForgetsLastSent(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	origin := fleet.NewLocation(-70.0219, -15.8402)

	policy := NewSamplingPolicy()
	policy.Reset(start)

	sendTime := start.Add(5 * time.Second)
	assert.True(t, policy.ShouldSend(origin, sendTime))

	// After a reconnect reset, the same stationary position is sendable
	// again once the fresh interval elapses
	policy.Reset(sendTime.Add(time.Minute))
	assert.True(t, policy.ShouldSend(origin, sendTime.Add(time.Minute+5*time.Second)))
}
