package poller

import "time"

// Level classifies an event for rendering.
type Level int8

const (
	LevelInfo Level = iota
	LevelError
)

// Event is one entry in the poll log. Events are immutable once emitted and
// their order is the emission order.
type Event struct {
	Time    time.Time
	Level   Level
	Message string
}

// EventSink receives events synchronously, in emission order.
type EventSink interface {
	Emit(event Event)
}

// State identifies where the poll loop currently is. The loop moves through
// these states strictly sequentially; there is never more than one
// outstanding operation.
type State int8

const (
	StateDisconnected State = iota
	StateConnected
	StateSending
	StateAwaitingResponse
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateSending:
		return "sending"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}
