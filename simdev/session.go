// Package simdev provides an in-process simulated tracking session. It backs
// the test suites and the CLI's --simulate mode: tests and demos drive device
// state transitions explicitly and observe the resulting event deliveries.
package simdev

import (
	"context"
	"sync"
	"time"

	"github.com/ldisse/airtrack/tracking"
)

// historySize is the number of frames the real service retains.
const historySize = tracking.MaxFrameHistory + 1

var _ tracking.Session = (*Session)(nil)

// Session is a simulated tracking session. Driver methods (ConnectDevice,
// EmitFrame, ...) mutate session state and then deliver the matching event
// to every registered listener, serialized on the calling goroutine. From
// the listeners' point of view the caller is the service's delivery thread.
type Session struct {
	mu               sync.Mutex
	serviceConnected bool
	deviceConnected  bool
	focused          bool
	policies         tracking.Policy
	gestures         map[tracking.GestureType]bool
	now              tracking.Timestamp
	nextFrameID      int64
	history          []tracking.Frame
	images           tracking.ImageList
	closed           bool
	rejectAdds       bool

	// deliverMu serializes event deliveries so listeners see a single
	// ordered stream even when several driver goroutines race.
	deliverMu sync.Mutex
	sinks     map[tracking.Token]tracking.EventSink
	order     []tracking.Token
}

// NewSession returns an idle simulated session: service down, no device, no
// focus, empty history.
func NewSession() *Session {
	return &Session{
		gestures:    make(map[tracking.GestureType]bool),
		sinks:       make(map[tracking.Token]tracking.EventSink),
		nextFrameID: 1,
	}
}

// RejectRegistrations makes every subsequent AddListener fail, simulating
// the service refusing a registration.
func (s *Session) RejectRegistrations(reject bool) {
	s.mu.Lock()
	s.rejectAdds = reject
	s.mu.Unlock()
}

// AddListener registers a sink and synchronously delivers EventInit for it
// before returning.
func (s *Session) AddListener(token tracking.Token, sink tracking.EventSink) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return tracking.ErrSessionClosed
	}
	if s.rejectAdds {
		s.mu.Unlock()
		return tracking.ErrRegistrationRejected
	}
	s.mu.Unlock()

	// Holding deliverMu across registration and the init delivery keeps a
	// concurrent emit from slotting in before EventInit.
	s.deliverMu.Lock()
	s.sinks[token] = sink
	s.order = append(s.order, token)
	sink.DeliverEvent(s, tracking.EventInit, token)
	s.deliverMu.Unlock()
	return nil
}

// RemoveListener unregisters a token. It blocks until any in-flight delivery
// has returned; no deliveries for the token happen after it returns.
func (s *Session) RemoveListener(token tracking.Token) {
	s.deliverMu.Lock()
	delete(s.sinks, token)
	for i, t := range s.order {
		if t == token {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.deliverMu.Unlock()
}

// Close marks the session closed and drops all listeners.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.deliverMu.Lock()
	s.sinks = make(map[tracking.Token]tracking.EventSink)
	s.order = nil
	s.deliverMu.Unlock()
	return nil
}

// deliver sends one event to every registered sink in registration order.
// Session state has already been updated and unlocked by the time it runs,
// so hooks are free to query the session.
func (s *Session) deliver(kind tracking.Event) {
	s.deliverMu.Lock()
	for _, token := range s.order {
		if sink, ok := s.sinks[token]; ok {
			sink.DeliverEvent(s, kind, token)
		}
	}
	s.deliverMu.Unlock()
}

// ServiceUp marks the service connection established and delivers
// EventServiceConnect.
func (s *Session) ServiceUp() {
	s.mu.Lock()
	s.serviceConnected = true
	s.mu.Unlock()
	s.deliver(tracking.EventServiceConnect)
}

// ServiceDown drops the service connection and delivers
// EventServiceDisconnect.
func (s *Session) ServiceDown() {
	s.mu.Lock()
	s.serviceConnected = false
	s.mu.Unlock()
	s.deliver(tracking.EventServiceDisconnect)
}

// ConnectDevice plugs a device in and delivers EventConnect.
func (s *Session) ConnectDevice() {
	s.mu.Lock()
	s.deviceConnected = true
	s.mu.Unlock()
	s.deliver(tracking.EventConnect)
}

// DisconnectDevice unplugs the device and delivers EventDisconnect.
func (s *Session) DisconnectDevice() {
	s.mu.Lock()
	s.deviceConnected = false
	s.mu.Unlock()
	s.deliver(tracking.EventDisconnect)
}

// GainFocus gives the application device focus and delivers
// EventFocusGained.
func (s *Session) GainFocus() {
	s.mu.Lock()
	s.focused = true
	s.mu.Unlock()
	s.deliver(tracking.EventFocusGained)
}

// LoseFocus removes device focus and delivers EventFocusLost.
func (s *Session) LoseFocus() {
	s.mu.Lock()
	s.focused = false
	s.mu.Unlock()
	s.deliver(tracking.EventFocusLost)
}

// ChangeDevices delivers EventDeviceChange.
func (s *Session) ChangeDevices() {
	s.deliver(tracking.EventDeviceChange)
}

// EmitFrame appends a new frame to the history and delivers EventFrame. The
// frame ID and timestamp advance automatically; fps is reported as the
// frame's instantaneous capture rate.
func (s *Session) EmitFrame(fps float32) tracking.Frame {
	s.mu.Lock()
	s.now += 10_000 // 10ms per simulated frame
	frame := tracking.NewFrame(s.nextFrameID, s.now, fps)
	s.nextFrameID++
	s.history = append(s.history, frame)
	if len(s.history) > historySize {
		s.history = s.history[1:]
	}
	s.mu.Unlock()

	s.deliver(tracking.EventFrame)
	return frame
}

// EmitImages installs a stereo image pair as the current image set and
// delivers EventImages. The images are flat gradients; enough for consumers
// that only care about dimensions and validity.
func (s *Session) EmitImages(width, height int) {
	s.mu.Lock()
	s.now += 10_000
	seq := s.nextFrameID
	data := make([]byte, width*height)
	for i := range data {
		data[i] = byte(i % 256)
	}
	distortion := make([]float32, tracking.DistortionHeight*tracking.DistortionWidth*2)
	for i := range distortion {
		distortion[i] = float32(i%2) / 2 // u/v pairs inside [0, 1]
	}
	s.images = tracking.ImageList{
		tracking.NewImage(tracking.CameraLeft, seq, s.now, width, height, 1, data, distortion),
		tracking.NewImage(tracking.CameraRight, seq, s.now, width, height, 1, data, distortion),
	}
	s.mu.Unlock()

	s.deliver(tracking.EventImages)
}

// Feed emits frames at the given interval until ctx is cancelled. It is what
// the CLI's --simulate mode runs.
func (s *Session) Feed(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EmitFrame(float32(time.Second / interval))
		}
	}
}

// IsServiceConnected reports whether the simulated service is up.
func (s *Session) IsServiceConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serviceConnected
}

// IsConnected reports whether the simulated device is plugged in.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceConnected
}

// HasFocus reports whether the application has simulated device focus.
func (s *Session) HasFocus() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// Now returns the simulated service clock.
func (s *Session) Now() tracking.Timestamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// FrameAt returns the frame of the given age, or an invalid frame when that
// much history has not accumulated yet.
func (s *Session) FrameAt(history int) tracking.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if history < 0 || history >= len(s.history) {
		return tracking.Frame{}
	}
	return s.history[len(s.history)-1-history]
}

// Images returns the current simulated image set.
func (s *Session) Images() tracking.ImageList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images
}

// SetPolicy enables a policy flag. The simulation applies policies
// immediately.
func (s *Session) SetPolicy(p tracking.Policy) {
	s.mu.Lock()
	s.policies |= p
	s.mu.Unlock()
}

// ClearPolicy disables a policy flag.
func (s *Session) ClearPolicy(p tracking.Policy) {
	s.mu.Lock()
	s.policies &^= p
	s.mu.Unlock()
}

// IsPolicySet reports whether a policy flag is enabled.
func (s *Session) IsPolicySet(p tracking.Policy) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policies&p == p
}

// EnableGesture enables detection of a gesture kind.
func (s *Session) EnableGesture(g tracking.GestureType) {
	s.mu.Lock()
	s.gestures[g] = true
	s.mu.Unlock()
}

// DisableGesture disables detection of a gesture kind.
func (s *Session) DisableGesture(g tracking.GestureType) {
	s.mu.Lock()
	s.gestures[g] = false
	s.mu.Unlock()
}

// IsGestureEnabled reports whether a gesture kind is enabled.
func (s *Session) IsGestureEnabled(g tracking.GestureType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gestures[g]
}
