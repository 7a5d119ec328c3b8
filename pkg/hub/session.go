package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rastreobus/rastreobus/pkg/fleet"
)

type Role string

const (
	RoleDriver    Role = "driver"
	RoleDashboard Role = "dashboard"
)

var (
	ErrSessionClosed = errors.New("session is closed")
	ErrSlowConsumer  = errors.New("session outbound buffer is full")
)

const outboundBufferSize = 64
const writeTimeout = 10 * time.Second

// Conn is the subset of *websocket.Conn a Session needs.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session wraps one live connection. The transport owns the socket; the hub
// only addresses the session as a broadcast target. All writes go through
// the outbound channel so a slow dashboard never blocks an ingesting driver.
type Session struct {
	ID          string
	Role        Role
	VehicleID   string // drivers only, bound at authentication
	ConnectedAt time.Time

	conn     Conn
	outbound chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(role Role, vehicleID string, conn Conn) *Session {
	return &Session{
		ID:          uuid.NewString(),
		Role:        role,
		VehicleID:   vehicleID,
		ConnectedAt: time.Now(),

		conn:     conn,
		outbound: make(chan []byte, outboundBufferSize),
		done:     make(chan struct{}),
	}
}

// Send queues the event for delivery. It never blocks: a full buffer means
// the consumer is too slow and the event is dropped for this session only.
func (s *Session) Send(event fleet.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.outbound <- data:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return ErrSlowConsumer
	}
}

// WritePump drains the outbound channel onto the socket. Run as a goroutine
// per session; returns when the session closes or a write fails.
func (s *Session) WritePump() {
	for {
		select {
		case data := <-s.outbound:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}
