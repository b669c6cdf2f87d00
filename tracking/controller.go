package tracking

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"

	"github.com/ldisse/airtrack/internal/logger"
)

// MaxFrameHistory is the oldest frame age accepted by FrameAt. The service
// retains the last 60 frames; the limit comes from the service, not from
// this library.
const MaxFrameHistory = 59

// fatalExit terminates the process after a listener panic. A panicking hook
// leaves the delivery goroutine in a state that cannot be resumed safely, so
// dispatch never recovers past it. Tests swap this out to observe the policy.
var fatalExit = func() { os.Exit(2) }

// Controller owns a session and the listeners registered against it. It is
// the dispatch bridge between the session's delivery goroutine and user
// listener code.
//
// A Controller must not be used after Close.
type Controller struct {
	mu        sync.Mutex
	session   Session
	listeners map[Token]Listener
	order     []Token
	closed    bool
}

// NewController wraps a session. The session's connection attempt proceeds in
// the background; the returned controller is valid but may not be connected
// yet.
func NewController(session Session) *Controller {
	return &Controller{
		session:   session,
		listeners: make(map[Token]Listener),
	}
}

// AddListener registers a listener and returns its token. The listener's
// OnInit hook fires before AddListener returns. On error the listener was not
// retained and no hook was called.
//
// Each listener instance must be registered at most once; registering the
// same instance twice is unsupported.
func (c *Controller) AddListener(l Listener) (Token, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Token{}, ErrControllerClosed
	}
	token := NewToken()
	// The token must resolve before the session call: the session delivers
	// EventInit synchronously inside AddListener.
	c.listeners[token] = l
	c.order = append(c.order, token)
	c.mu.Unlock()

	if err := c.session.AddListener(token, c); err != nil {
		c.mu.Lock()
		delete(c.listeners, token)
		c.dropToken(token)
		c.mu.Unlock()
		return Token{}, fmt.Errorf("%w: %v", ErrRegistrationRejected, err)
	}

	logger.Debugf("listener registered: %s", token)
	return token, nil
}

// RemoveListener unregisters a listener. Its OnExit hook fires exactly once,
// after which no further hooks are called for it. Removing an unknown token
// is a no-op.
func (c *Controller) RemoveListener(token Token) {
	c.mu.Lock()
	l, ok := c.listeners[token]
	c.mu.Unlock()
	if !ok {
		return
	}

	// Quiesce deliveries first so no hook can race with or follow OnExit.
	c.session.RemoveListener(token)

	c.mu.Lock()
	delete(c.listeners, token)
	c.dropToken(token)
	c.mu.Unlock()

	c.invoke(l, EventExit)
	logger.Debugf("listener removed: %s", token)
}

// Close notifies every registered listener via OnExit, in registration order,
// then closes the session. Queries are invalid after Close.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	tokens := c.order
	remaining := c.listeners
	c.order = nil
	c.listeners = make(map[Token]Listener)
	c.mu.Unlock()

	for _, token := range tokens {
		c.session.RemoveListener(token)
		c.invoke(remaining[token], EventExit)
	}

	return c.session.Close()
}

// DeliverEvent is the inbound edge of the dispatch bridge. The session calls
// it once per event occurrence, on its own delivery goroutine. It resolves
// the token to the registered listener and invokes the matching hook. It
// holds no lock while user code runs and performs no blocking work.
func (c *Controller) DeliverEvent(s Session, kind Event, token Token) {
	c.mu.Lock()
	l, ok := c.listeners[token]
	c.mu.Unlock()
	if !ok {
		// Stale delivery racing a removal; the listener already saw OnExit.
		logger.Debugf("dropping %s for unknown token %s", kind, token)
		return
	}
	c.invoke(l, kind)
}

// invoke runs one hook inside the failure boundary. A panic in user code
// must not unwind into the session's delivery loop and the hook cannot be
// skipped-and-resumed, so the only safe outcome is process termination.
func (c *Controller) invoke(l Listener, kind Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("listener panicked during %s: %v\n%s", kind, r, debug.Stack())
			fatalExit()
		}
	}()

	switch kind {
	case EventInit:
		l.OnInit(c.session)
	case EventConnect:
		l.OnConnect(c.session)
	case EventDisconnect:
		l.OnDisconnect(c.session)
	case EventExit:
		l.OnExit(c.session)
	case EventFrame:
		l.OnFrame(c.session)
	case EventFocusGained:
		l.OnFocusGained(c.session)
	case EventFocusLost:
		l.OnFocusLost(c.session)
	case EventServiceConnect:
		l.OnServiceConnect(c.session)
	case EventServiceDisconnect:
		l.OnServiceDisconnect(c.session)
	case EventDeviceChange:
		l.OnDeviceChange(c.session)
	case EventImages:
		l.OnImages(c.session)
	default:
		logger.Warnf("unknown event kind %d", kind)
	}
}

// dropToken removes token from the registration order. Caller holds c.mu.
func (c *Controller) dropToken(token Token) {
	for i, t := range c.order {
		if t == token {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// IsServiceConnected reports whether the connection to the tracking service
// is established.
func (c *Controller) IsServiceConnected() bool {
	return c.session.IsServiceConnected()
}

// IsConnected reports whether a tracking device is connected.
func (c *Controller) IsConnected() bool {
	return c.session.IsConnected()
}

// HasFocus reports whether this application currently has device focus.
func (c *Controller) HasFocus() bool {
	return c.session.HasFocus()
}

// Now returns the current service timestamp.
func (c *Controller) Now() Timestamp {
	return c.session.Now()
}

// Frame returns the most recent frame of tracking data.
func (c *Controller) Frame() Frame {
	return c.FrameAt(0)
}

// FrameAt returns a frame of tracking data of the given age. 0 selects the
// most recent frame, 1 the frame before that, and so on. Ages outside
// [0, MaxFrameHistory] return an invalid frame, not an error; check
// Frame.Valid before use.
func (c *Controller) FrameAt(history int) Frame {
	if history < 0 || history > MaxFrameHistory {
		return Frame{}
	}
	return c.session.FrameAt(history)
}

// Images returns the most recent set of captured camera images. Receiving
// images requires PolicyImages to be set.
func (c *Controller) Images() ImageList {
	return c.session.Images()
}

// SetPolicy enables a service or device policy. Policies only take effect
// once a device is connected, and not immediately: IsPolicySet can lag a
// SetPolicy call.
func (c *Controller) SetPolicy(p Policy) {
	c.session.SetPolicy(p)
}

// ClearPolicy disables a service or device policy.
func (c *Controller) ClearPolicy(p Policy) {
	c.session.ClearPolicy(p)
}

// IsPolicySet reports whether a policy is currently in effect.
func (c *Controller) IsPolicySet(p Policy) bool {
	return c.session.IsPolicySet(p)
}

// EnableGesture enables detection and reporting of a gesture kind.
func (c *Controller) EnableGesture(g GestureType) {
	c.session.EnableGesture(g)
}

// DisableGesture disables detection and reporting of a gesture kind.
func (c *Controller) DisableGesture(g GestureType) {
	c.session.DisableGesture(g)
}

// IsGestureEnabled reports whether a gesture kind is being detected.
func (c *Controller) IsGestureEnabled(g GestureType) bool {
	return c.session.IsGestureEnabled(g)
}
