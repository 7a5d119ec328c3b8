package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverClientReportsThroughPolicy(t *testing.T) {
	dialer := &fakeDialer{}

	driver := NewDriverClient("ws://localhost:4000/tracking", "test-token", "ABC-123")
	driver.RouteLabel = "Linea 5"
	driver.Session = newTestSession(dialer)
	defer driver.Close()

	driver.Start(context.Background())

	require.Eventually(t, func() bool {
		return driver.Session.Status() == StatusConnected
	}, time.Second, 5*time.Millisecond)

	// Give the lifecycle watcher a moment to seed the policy, then pin the
	// cursor so the timing below is deterministic
	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	driver.Policy.Reset(start)

	// Gated by the freshly seeded interval cursor
	require.NoError(t, driver.Report(-15.8402, -70.0219, 5.5, start))

	// Past the interval, this one goes out
	sendTime := start.Add(5 * time.Second)
	require.NoError(t, driver.Report(-15.8402, -70.0219, 5.5, sendTime))

	require.Len(t, dialer.conns, 1)
	conn := dialer.conns[0]
	require.Equal(t, 1, conn.writtenCount())

	var sent fleet.Event
	require.NoError(t, json.Unmarshal(conn.written[0], &sent))
	require.Equal(t, fleet.EventTypeFix, sent.Type)
	require.NotNil(t, sent.Fix)
	assert.Equal(t, "ABC-123", sent.Fix.VehicleID)
	assert.Equal(t, "Linea 5", sent.Fix.RouteLabel)
	assert.Equal(t, sendTime.UnixMilli(), sent.Fix.Timestamp)
	assert.Equal(t, -70.0219, sent.Fix.Location.Longitude())
	assert.Equal(t, -15.8402, sent.Fix.Location.Latitude())
}

func TestDriverClientReportWhileDisconnected(t *testing.T) {
	driver := NewDriverClient("ws://localhost:4000/tracking", "test-token", "ABC-123")
	driver.Session = newTestSession(&fakeDialer{})

	driver.Policy.Reset(time.Now().Add(-time.Minute))

	err := driver.Report(-15.8402, -70.0219, 5.5, time.Now())

	assert.ErrorIs(t, err, ErrNotConnected)
}
