package tracking

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrControllerClosed is returned when operating on a closed controller
	ErrControllerClosed = errors.New("controller is closed")
	// ErrSessionClosed is returned when the underlying session is closed
	ErrSessionClosed = errors.New("session is closed")
	// ErrRegistrationRejected is returned when the session refuses a listener registration
	ErrRegistrationRejected = errors.New("listener registration rejected")
)

// Event identifies one kind of occurrence reported by a session. Events carry
// no payload; handlers query the session for current state at call time.
type Event int

const (
	EventInit Event = iota
	EventConnect
	EventDisconnect
	EventExit
	EventFrame
	EventFocusGained
	EventFocusLost
	EventServiceConnect
	EventServiceDisconnect
	EventDeviceChange
	EventImages
)

func (e Event) String() string {
	switch e {
	case EventInit:
		return "init"
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventExit:
		return "exit"
	case EventFrame:
		return "frame"
	case EventFocusGained:
		return "focus-gained"
	case EventFocusLost:
		return "focus-lost"
	case EventServiceConnect:
		return "service-connect"
	case EventServiceDisconnect:
		return "service-disconnect"
	case EventDeviceChange:
		return "device-change"
	case EventImages:
		return "images"
	default:
		return "unknown"
	}
}

// Token correlates an event delivery with the listener it targets. Tokens are
// stable for the lifetime of a registration.
type Token uuid.UUID

// NewToken returns a fresh, unique registration token.
func NewToken() Token {
	return Token(uuid.New())
}

func (t Token) String() string {
	return uuid.UUID(t).String()
}

// EventSink receives event deliveries from a session. Implementations are
// invoked on the session's own delivery goroutine, which is generally not a
// goroutine the application controls. Sinks must return quickly and must not
// block the delivery goroutine.
type EventSink interface {
	DeliverEvent(s Session, kind Event, token Token)
}

// Session is a connection to the tracking service. It is the event source of
// this library: implementations own their delivery goroutine(s) and report
// occurrences through the registered sinks.
//
// Delivery contract: calls into a sink for a given token are serialized and
// arrive in the order the session raised them. EventInit is delivered
// synchronously inside a successful AddListener, before AddListener returns
// and before any other event for that token. RemoveListener blocks until any
// in-flight delivery for the token has returned; no deliveries for the token
// happen after it returns.
//
// Query methods are non-blocking reads (or fire-and-forget mutations) against
// current session state and are safe to call from any goroutine.
type Session interface {
	// IsServiceConnected reports whether the connection to the tracking
	// service is established.
	IsServiceConnected() bool

	// IsConnected reports whether a tracking device is plugged in and
	// streaming.
	IsConnected() bool

	// HasFocus reports whether this application currently has device focus.
	HasFocus() bool

	// Now returns the current service timestamp.
	Now() Timestamp

	// FrameAt returns a frame of tracking data of the given age. 0 selects
	// the most recent frame, 1 the one before that, and so on up to
	// MaxFrameHistory. Requests beyond the retained history return an
	// invalid frame.
	FrameAt(history int) Frame

	// Images returns the most recent set of captured camera images.
	Images() ImageList

	SetPolicy(p Policy)
	ClearPolicy(p Policy)
	IsPolicySet(p Policy) bool

	EnableGesture(g GestureType)
	DisableGesture(g GestureType)
	IsGestureEnabled(g GestureType) bool

	// AddListener registers a sink under the given token. An error means the
	// registration was rejected and no events (not even EventInit) will be
	// delivered for the token.
	AddListener(token Token, sink EventSink) error

	// RemoveListener unregisters the token and quiesces its deliveries.
	RemoveListener(token Token)

	// Close shuts the session down. No deliveries happen after Close returns.
	Close() error
}
