package fleet

type EventType string

const (
	// Wire events
	EventTypeFix         EventType = "fix"
	EventTypeFixReceived EventType = "fix_received"
	EventTypeSnapshot    EventType = "snapshot"

	// Session lifecycle events, local to a client
	EventTypeConnected       EventType = "connected"
	EventTypeDisconnected    EventType = "disconnected"
	EventTypeReconnectFailed EventType = "reconnect_failed"
	EventTypeError           EventType = "error"
)

// Event is the single envelope for hub<->client traffic and for session
// lifecycle notifications. Exactly one of the payload fields is set,
// selected by Type.
type Event struct {
	Type EventType `json:"type"`

	Fix    *VehicleFix    `json:"fix,omitempty"`
	States []VehicleState `json:"states,omitempty"`

	Message string `json:"message,omitempty"`
}

func NewFixEvent(fix VehicleFix) Event {
	return Event{
		Type: EventTypeFix,
		Fix:  &fix,
	}
}

func NewSnapshotEvent(states []VehicleState) Event {
	return Event{
		Type:   EventTypeSnapshot,
		States: states,
	}
}
