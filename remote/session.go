// Package remote implements a tracking session backed by the tracking
// daemon's WebSocket endpoint. The daemon speaks a JSON protocol on
// localhost: a version handshake on connect, one message per tracking frame,
// device attach/detach events, and JSON control messages for focus, policy
// and gesture configuration.
//
// The session does not reconnect on its own; after a read failure it
// delivers EventServiceDisconnect and stays down. Reconnect policy belongs
// to the caller.
package remote

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ldisse/airtrack/internal/logger"
	"github.com/ldisse/airtrack/tracking"
)

// DefaultURL is the tracking daemon's local WebSocket endpoint.
const DefaultURL = "ws://127.0.0.1:6437/v6.json"

const dialTimeout = 5 * time.Second

// historySize matches the daemon's frame retention.
const historySize = tracking.MaxFrameHistory + 1

var _ tracking.Session = (*Session)(nil)

// serverMessage is the union of everything the daemon sends. Exactly one of
// the groups is populated per message.
type serverMessage struct {
	// Handshake
	Version        int    `json:"version,omitempty"`
	ServiceVersion string `json:"serviceVersion,omitempty"`

	// Device events
	Event *deviceEvent `json:"event,omitempty"`

	// Tracking frames (ID 0 is never used by the daemon)
	ID               int64   `json:"id,omitempty"`
	Timestamp        int64   `json:"timestamp,omitempty"`
	CurrentFrameRate float32 `json:"currentFrameRate,omitempty"`
}

type deviceEvent struct {
	Type  string `json:"type"`
	State struct {
		Attached  bool   `json:"attached"`
		StreamID  string `json:"id"`
		Streaming bool   `json:"streaming"`
	} `json:"state"`
}

// clientMessage is a JSON control message sent to the daemon.
type clientMessage map[string]interface{}

// Session is a live connection to the tracking daemon.
type Session struct {
	url string

	mu               sync.Mutex
	conn             *websocket.Conn
	serviceConnected bool
	deviceConnected  bool
	focused          bool
	policies         tracking.Policy
	gestures         map[tracking.GestureType]bool
	history          []tracking.Frame
	lastFrameTS      tracking.Timestamp
	lastFrameLocal   time.Time
	started          time.Time
	closed           bool

	writeMu sync.Mutex // gorilla allows one concurrent writer

	deliverMu sync.Mutex
	sinks     map[tracking.Token]tracking.EventSink
	order     []tracking.Token

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a session and starts connecting to the daemon in the
// background. The returned session is valid immediately; EventServiceConnect
// is delivered once the handshake completes. An empty url selects
// DefaultURL.
func New(url string) *Session {
	if url == "" {
		url = DefaultURL
	}
	s := &Session{
		url:      url,
		gestures: make(map[tracking.GestureType]bool),
		sinks:    make(map[tracking.Token]tracking.EventSink),
		started:  time.Now(),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// run dials the daemon and pumps messages until the connection drops or the
// session is closed.
func (s *Session) run() {
	defer s.wg.Done()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(s.url, nil)
	if err != nil {
		logger.Errorf("tracking daemon dial failed: %v", err)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	s.readLoop(conn)
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			wasClosed := s.closed
			wasService := s.serviceConnected
			wasDevice := s.deviceConnected
			s.serviceConnected = false
			s.deviceConnected = false
			s.conn = nil
			s.mu.Unlock()

			if !wasClosed {
				logger.Warnf("tracking daemon connection lost: %v", err)
				if wasDevice {
					s.deliver(tracking.EventDisconnect)
				}
				if wasService {
					s.deliver(tracking.EventServiceDisconnect)
				}
			}
			_ = conn.Close()
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debugf("discarding malformed daemon message: %v", err)
			continue
		}
		s.handleMessage(&msg)
	}
}

func (s *Session) handleMessage(msg *serverMessage) {
	switch {
	case msg.ServiceVersion != "" || msg.Version != 0:
		s.mu.Lock()
		s.serviceConnected = true
		s.mu.Unlock()
		logger.Infof("tracking daemon connected (service %s, protocol v%d)", msg.ServiceVersion, msg.Version)
		s.deliver(tracking.EventServiceConnect)

	case msg.Event != nil && msg.Event.Type == "deviceEvent":
		s.mu.Lock()
		was := s.deviceConnected
		s.deviceConnected = msg.Event.State.Attached && msg.Event.State.Streaming
		now := s.deviceConnected
		s.mu.Unlock()

		s.deliver(tracking.EventDeviceChange)
		if now && !was {
			s.deliver(tracking.EventConnect)
		} else if !now && was {
			s.deliver(tracking.EventDisconnect)
		}

	case msg.ID != 0:
		frame := tracking.NewFrame(msg.ID, tracking.Timestamp(msg.Timestamp), msg.CurrentFrameRate)
		s.mu.Lock()
		s.history = append(s.history, frame)
		if len(s.history) > historySize {
			s.history = s.history[1:]
		}
		s.lastFrameTS = frame.Timestamp()
		s.lastFrameLocal = time.Now()
		s.mu.Unlock()

		s.deliver(tracking.EventFrame)
	}
}

// send writes one control message to the daemon. Messages sent while the
// connection is down are dropped; the daemon re-derives configuration from
// scratch on every connection anyway.
func (s *Session) send(msg clientMessage) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		logger.Debugf("dropping control message while disconnected: %v", msg)
		return
	}

	s.writeMu.Lock()
	err := conn.WriteJSON(msg)
	s.writeMu.Unlock()
	if err != nil {
		logger.Warnf("control message write failed: %v", err)
	}
}

// deliver sends one event to every registered sink in registration order.
func (s *Session) deliver(kind tracking.Event) {
	s.deliverMu.Lock()
	for _, token := range s.order {
		if sink, ok := s.sinks[token]; ok {
			sink.DeliverEvent(s, kind, token)
		}
	}
	s.deliverMu.Unlock()
}

// AddListener registers a sink and synchronously delivers EventInit for it.
func (s *Session) AddListener(token tracking.Token, sink tracking.EventSink) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return tracking.ErrSessionClosed
	}
	s.mu.Unlock()

	s.deliverMu.Lock()
	s.sinks[token] = sink
	s.order = append(s.order, token)
	sink.DeliverEvent(s, tracking.EventInit, token)
	s.deliverMu.Unlock()
	return nil
}

// RemoveListener unregisters a token, blocking until any in-flight delivery
// for it has returned.
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

// Close shuts the connection down and drops all listeners.
func (s *Session) Close() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()

		if conn != nil {
			_ = conn.Close()
		}
		s.wg.Wait()

		s.deliverMu.Lock()
		s.sinks = make(map[tracking.Token]tracking.EventSink)
		s.order = nil
		s.deliverMu.Unlock()
	})
	return nil
}

// SetFocused tells the daemon whether this application has device focus and
// delivers the matching focus event. Without focus the daemon stops sending
// frames unless PolicyBackgroundFrames is set.
func (s *Session) SetFocused(focused bool) {
	s.mu.Lock()
	was := s.focused
	s.focused = focused
	s.mu.Unlock()
	if was == focused {
		return
	}

	s.send(clientMessage{"focused": focused})
	if focused {
		s.deliver(tracking.EventFocusGained)
	} else {
		s.deliver(tracking.EventFocusLost)
	}
}

// IsServiceConnected reports whether the daemon handshake has completed.
func (s *Session) IsServiceConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serviceConnected
}

// IsConnected reports whether a tracking device is attached and streaming.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceConnected
}

// HasFocus reports the focus state last sent with SetFocused.
func (s *Session) HasFocus() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

// Now returns the current service timestamp, extrapolated from the last
// frame's timestamp by the local clock.
func (s *Session) Now() tracking.Timestamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFrameLocal.IsZero() {
		return tracking.Timestamp(time.Since(s.started).Microseconds())
	}
	return s.lastFrameTS + tracking.Timestamp(time.Since(s.lastFrameLocal).Microseconds())
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

// Images returns an empty list: the JSON endpoint does not carry camera
// image data. Image streaming needs the daemon's binary image feed, which
// this transport does not implement.
func (s *Session) Images() tracking.ImageList {
	return nil
}

// SetPolicy requests a policy from the daemon.
func (s *Session) SetPolicy(p tracking.Policy) {
	s.setPolicy(p, true)
}

// ClearPolicy withdraws a policy request.
func (s *Session) ClearPolicy(p tracking.Policy) {
	s.setPolicy(p, false)
}

func (s *Session) setPolicy(p tracking.Policy, enable bool) {
	s.mu.Lock()
	if enable {
		s.policies |= p
	} else {
		s.policies &^= p
	}
	s.mu.Unlock()

	switch p {
	case tracking.PolicyBackgroundFrames:
		s.send(clientMessage{"background": enable})
	case tracking.PolicyImages:
		s.send(clientMessage{"enableImages": enable})
	case tracking.PolicyOptimizeHMD:
		s.send(clientMessage{"optimizeHMD": enable})
	default:
		logger.Warnf("ignoring unknown policy %#x", uint32(p))
	}
}

// IsPolicySet reports whether a policy has been requested on this session.
// The daemon applies policies asynchronously, so a freshly requested policy
// may not have taken effect on the device yet.
func (s *Session) IsPolicySet(p tracking.Policy) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policies&p == p
}

// EnableGesture enables detection of a gesture kind.
func (s *Session) EnableGesture(g tracking.GestureType) {
	s.setGesture(g, true)
}

// DisableGesture disables detection of a gesture kind.
func (s *Session) DisableGesture(g tracking.GestureType) {
	s.setGesture(g, false)
}

func (s *Session) setGesture(g tracking.GestureType, enable bool) {
	s.mu.Lock()
	s.gestures[g] = enable
	any := false
	for _, on := range s.gestures {
		if on {
			any = true
			break
		}
	}
	s.mu.Unlock()

	// The daemon has a single gesture switch; per-kind filtering happens in
	// frame parsing.
	s.send(clientMessage{"enableGestures": any})
}

// IsGestureEnabled reports whether a gesture kind is enabled.
func (s *Session) IsGestureEnabled(g tracking.GestureType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gestures[g]
}

// String identifies the session endpoint, for logs.
func (s *Session) String() string {
	return fmt.Sprintf("remote(%s)", s.url)
}
