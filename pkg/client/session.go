package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rastreobus/rastreobus/pkg/fleet"
	"github.com/rs/zerolog/log"
)

type Status string

const (
	StatusDisconnected Status = "Disconnected"
	StatusConnecting   Status = "Connecting"
	StatusConnected    Status = "Connected"
	StatusReconnecting Status = "Reconnecting"
	// StatusFailed is terminal: retry attempts are exhausted or the server
	// rejected the credentials
	StatusFailed Status = "Failed"
)

const (
	DefaultConnectAttempts = 5
	DefaultReconnectDelay  = 3000 * time.Millisecond
	DefaultConnectTimeout  = 5000 * time.Millisecond
)

var (
	ErrNotConnected = errors.New("session is not connected")
	ErrUnauthorized = errors.New("server rejected credentials")
)

const eventBufferSize = 64

// Conn is the subset of *websocket.Conn the session needs.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer abstracts the transport so tests can stub it.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

type websocketDialer struct {
	timeout time.Duration
}

func (d *websocketDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.timeout}

	conn, response, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if response != nil && (response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	return conn, nil
}

// ConnectionSession maintains one logical channel over an unreliable
// network. Callers see a status and a single ordered event channel; the
// reconnect churn stays inside.
type ConnectionSession struct {
	URL   string
	Token string

	Dialer          Dialer
	ConnectAttempts int
	ReconnectDelay  time.Duration
	ConnectTimeout  time.Duration

	mutex  sync.Mutex
	status Status
	conn   Conn
	cancel context.CancelFunc

	events chan fleet.Event
}

func NewConnectionSession(url string, token string) *ConnectionSession {
	return &ConnectionSession{
		URL:   url,
		Token: token,

		Dialer:          &websocketDialer{timeout: DefaultConnectTimeout},
		ConnectAttempts: DefaultConnectAttempts,
		ReconnectDelay:  DefaultReconnectDelay,
		ConnectTimeout:  DefaultConnectTimeout,

		status: StatusDisconnected,
		events: make(chan fleet.Event, eventBufferSize),
	}
}

// Events delivers lifecycle transitions and received wire events in order.
func (s *ConnectionSession) Events() <-chan fleet.Event {
	return s.events
}

func (s *ConnectionSession) Status() Status {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.status
}

// Connect starts the session. Idempotent: calling it while connecting or
// connected is a no-op.
func (s *ConnectionSession) Connect(ctx context.Context) {
	s.mutex.Lock()
	if s.status == StatusConnected || s.status == StatusConnecting || s.status == StatusReconnecting {
		s.mutex.Unlock()
		return
	}

	runContext, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.status = StatusConnecting
	s.mutex.Unlock()

	go s.run(runContext)
}

// Send transmits the event if the session is connected, otherwise it fails
// fast with ErrNotConnected. No buffering: an unsent fix is a lost fix,
// which the lossy sampling contract allows.
func (s *ConnectionSession) Send(event fleet.Event) error {
	s.mutex.Lock()
	conn := s.conn
	connected := s.status == StatusConnected
	s.mutex.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *ConnectionSession) Close() {
	s.mutex.Lock()
	cancel := s.cancel
	conn := s.conn
	s.status = StatusDisconnected
	s.conn = nil
	s.mutex.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
}

func (s *ConnectionSession) run(ctx context.Context) {
	for {
		conn, err := s.dialWithRetry(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Deliberate close, not a connection failure
				return
			}

			s.setStatus(StatusFailed)

			if err == ErrUnauthorized {
				s.emit(fleet.Event{Type: fleet.EventTypeError, Message: err.Error()})
			} else {
				s.emit(fleet.Event{Type: fleet.EventTypeReconnectFailed, Message: err.Error()})
			}
			return
		}

		s.mutex.Lock()
		s.conn = conn
		s.status = StatusConnected
		s.mutex.Unlock()

		s.emit(fleet.Event{Type: fleet.EventTypeConnected})

		s.readLoop(ctx, conn)

		s.mutex.Lock()
		s.conn = nil
		s.status = StatusDisconnected
		s.mutex.Unlock()

		s.emit(fleet.Event{Type: fleet.EventTypeDisconnected})

		if ctx.Err() != nil {
			return
		}

		s.setStatus(StatusReconnecting)
	}
}

func (s *ConnectionSession) dialWithRetry(ctx context.Context) (Conn, error) {
	header := http.Header{}
	if s.Token != "" {
		header.Set("Authorization", "Bearer "+s.Token)
	}

	var conn Conn

	operation := func() error {
		dialContext, cancel := context.WithTimeout(ctx, s.ConnectTimeout)
		defer cancel()

		dialled, err := s.Dialer.Dial(dialContext, s.URL, header)
		if err == ErrUnauthorized {
			// Credential rejection never recovers by retrying
			return backoff.Permanent(err)
		}
		if err != nil {
			log.Warn().Err(err).Str("url", s.URL).Msg("Connect attempt failed")
			return err
		}

		conn = dialled
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(s.ReconnectDelay),
			uint64(s.ConnectAttempts-1),
		),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	return conn, nil
}

func (s *ConnectionSession) readLoop(ctx context.Context, conn Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var event fleet.Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Warn().Err(err).Msg("Discarding malformed server message")
			continue
		}

		s.emit(event)
	}
}

func (s *ConnectionSession) setStatus(status Status) {
	s.mutex.Lock()
	s.status = status
	s.mutex.Unlock()
}

// emit never blocks; if the subscriber stops draining, events are dropped.
func (s *ConnectionSession) emit(event fleet.Event) {
	select {
	case s.events <- event:
	default:
		log.Warn().Str("type", string(event.Type)).Msg("Dropping session event, subscriber too slow")
	}
}
