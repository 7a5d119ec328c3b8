package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rastreobus/rastreobus/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocationStore struct {
	mutex    sync.Mutex
	recorded []fleet.VehicleFix
	states   []fleet.VehicleState

	recordErr error
}

func (f *fakeLocationStore) RecordFix(ctx context.Context, fix fleet.VehicleFix) error {
	if f.recordErr != nil {
		return f.recordErr
	}

	f.mutex.Lock()
	f.recorded = append(f.recorded, fix)
	f.mutex.Unlock()
	return nil
}

func (f *fakeLocationStore) Latest(ctx context.Context, vehicleID string) (*fleet.VehicleState, error) {
	return nil, nil
}

func (f *fakeLocationStore) LatestAll(ctx context.Context) ([]fleet.VehicleState, error) {
	return f.states, nil
}

func (f *fakeLocationStore) History(ctx context.Context, vehicleID string, limit int64, since time.Time) ([]fleet.FixHistoryEntry, error) {
	return nil, nil
}

func (f *fakeLocationStore) Nearby(ctx context.Context, longitude float64, latitude float64, maxDistanceMetres float64) ([]fleet.VehicleState, error) {
	return nil, nil
}

func (f *fakeLocationStore) recordedCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.recorded)
}

type stubConn struct {
	mutex   sync.Mutex
	written [][]byte
	closed  chan struct{}
	once    sync.Once
}

func newStubConn() *stubConn {
	return &stubConn{closed: make(chan struct{})}
}

func (c *stubConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("connection closed")
}

func (c *stubConn) WriteMessage(messageType int, data []byte) error {
	c.mutex.Lock()
	c.written = append(c.written, data)
	c.mutex.Unlock()
	return nil
}

func (c *stubConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *stubConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *stubConn) writtenEvents(t *testing.T) []fleet.Event {
	t.Helper()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	events := make([]fleet.Event, 0, len(c.written))
	for _, data := range c.written {
		var event fleet.Event
		require.NoError(t, json.Unmarshal(data, &event))
		events = append(events, event)
	}
	return events
}

func (c *stubConn) writtenCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.written)
}

type fakePublisher struct {
	mutex    sync.Mutex
	payloads [][]byte
}

func (p *fakePublisher) PublishBytes(payload ...[]byte) error {
	p.mutex.Lock()
	p.payloads = append(p.payloads, payload...)
	p.mutex.Unlock()
	return nil
}

func validFix(vehicleID string) fleet.VehicleFix {
	return fleet.VehicleFix{
		VehicleID: vehicleID,
		Location:  fleet.NewLocation(-70.0219, -15.8402),
		Speed:     5.5,
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestIngestRejectsNonDriver(t *testing.T) {
	locationStore := &fakeLocationStore{}
	trackingHub := NewHub(locationStore, nil)

	dashboard := NewSession(RoleDashboard, "", newStubConn())

	err := trackingHub.Ingest(context.Background(), dashboard, validFix("ABC-123"))

	assert.ErrorIs(t, err, ErrNotDriver)
	assert.Equal(t, 0, locationStore.recordedCount())
}

func TestIngestRejectsVehicleMismatch(t *testing.T) {
	locationStore := &fakeLocationStore{}
	trackingHub := NewHub(locationStore, nil)

	driver := NewSession(RoleDriver, "ABC-123", newStubConn())

	err := trackingHub.Ingest(context.Background(), driver, validFix("XYZ-789"))

	assert.ErrorIs(t, err, ErrVehicleMismatch)
	assert.Equal(t, 0, locationStore.recordedCount())
}

func TestIngestDropsInvalidFixWithoutError(t *testing.T) {
	locationStore := &fakeLocationStore{}
	trackingHub := NewHub(locationStore, nil)

	driver := NewSession(RoleDriver, "ABC-123", newStubConn())

	fix := validFix("ABC-123")
	fix.Location = fleet.NewLocation(0, 0)

	err := trackingHub.Ingest(context.Background(), driver, fix)

	assert.NoError(t, err)
	assert.Equal(t, 0, locationStore.recordedCount())
}

func TestIngestDropsStaleFixSilently(t *testing.T) {
	locationStore := &fakeLocationStore{recordErr: store.ErrStaleFix}
	trackingHub := NewHub(locationStore, nil)

	driver := NewSession(RoleDriver, "ABC-123", newStubConn())

	dashboardConn := newStubConn()
	dashboard := NewSession(RoleDashboard, "", dashboardConn)
	trackingHub.Register(dashboard)
	go dashboard.WritePump()
	defer trackingHub.Unregister(dashboard)

	err := trackingHub.Ingest(context.Background(), driver, validFix("ABC-123"))

	assert.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, dashboardConn.writtenCount())
}

func TestIngestBroadcastsToDashboardsOnly(t *testing.T) {
	locationStore := &fakeLocationStore{}
	publisher := &fakePublisher{}
	trackingHub := NewHub(locationStore, publisher)

	driverConn := newStubConn()
	driver := NewSession(RoleDriver, "ABC-123", driverConn)
	trackingHub.Register(driver)
	go driver.WritePump()
	defer trackingHub.Unregister(driver)

	dashboardConns := []*stubConn{newStubConn(), newStubConn(), newStubConn()}
	for _, conn := range dashboardConns {
		dashboard := NewSession(RoleDashboard, "", conn)
		trackingHub.Register(dashboard)
		go dashboard.WritePump()
		defer trackingHub.Unregister(dashboard)
	}

	fix := validFix("ABC-123")
	require.NoError(t, trackingHub.Ingest(context.Background(), driver, fix))

	require.Equal(t, 1, locationStore.recordedCount())

	for _, conn := range dashboardConns {
		assert.Eventually(t, func() bool {
			return conn.writtenCount() == 1
		}, time.Second, 5*time.Millisecond)

		events := conn.writtenEvents(t)
		require.Len(t, events, 1)
		assert.Equal(t, fleet.EventTypeFix, events[0].Type)
		require.NotNil(t, events[0].Fix)
		assert.Equal(t, "ABC-123", events[0].Fix.VehicleID)
	}

	// Drivers never receive broadcasts
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, driverConn.writtenCount())

	// Accepted fixes also land on the downstream queue
	publisher.mutex.Lock()
	defer publisher.mutex.Unlock()
	require.Len(t, publisher.payloads, 1)
	var published fleet.VehicleFix
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &published))
	assert.Equal(t, "ABC-123", published.VehicleID)
}

func TestBroadcastIsolatesSlowSession(t *testing.T) {
	locationStore := &fakeLocationStore{}
	trackingHub := NewHub(locationStore, nil)

	// The slow session has no write pump, so its buffer fills up
	slow := NewSession(RoleDashboard, "", newStubConn())
	trackingHub.Register(slow)
	defer trackingHub.Unregister(slow)

	fastConn := newStubConn()
	fast := NewSession(RoleDashboard, "", fastConn)
	trackingHub.Register(fast)
	go fast.WritePump()
	defer trackingHub.Unregister(fast)

	event := fleet.NewFixEvent(validFix("ABC-123"))
	for i := 0; i < outboundBufferSize+10; i++ {
		trackingHub.Broadcast(event)
	}

	// Every broadcast completed without blocking on the slow session, and
	// the fast session received all of them
	assert.Eventually(t, func() bool {
		return fastConn.writtenCount() == outboundBufferSize+10
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSessionSendAfterClose(t *testing.T) {
	session := NewSession(RoleDashboard, "", newStubConn())
	session.Close()

	err := session.Send(fleet.NewFixEvent(validFix("ABC-123")))

	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSnapshot(t *testing.T) {
	locationStore := &fakeLocationStore{
		states: []fleet.VehicleState{
			{VehicleID: "ABC-123"},
			{VehicleID: "XYZ-789"},
		},
	}
	trackingHub := NewHub(locationStore, nil)

	event, err := trackingHub.Snapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, fleet.EventTypeSnapshot, event.Type)
	assert.Len(t, event.States, 2)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	trackingHub := NewHub(&fakeLocationStore{}, nil)

	session := NewSession(RoleDashboard, "", newStubConn())
	trackingHub.Register(session)

	trackingHub.Unregister(session)
	trackingHub.Unregister(session)
}
