package tracking

import (
	"fmt"
	"sync"
)

// ManagedController is a Controller with blocking "wait until" helpers. It
// registers one internal listener at construction to maintain the shared
// wait state the helpers block on.
//
// The wait helpers are callable from any goroutine. None of them takes a
// timeout: a caller that needs bounded waiting should run the wait in a
// goroutine and select against its own timer or context.
type ManagedController struct {
	*Controller
	shared *waitState
}

// NewManagedController wraps a session in a Controller and registers the
// internal wait-state listener.
func NewManagedController(session Session) (*ManagedController, error) {
	mc := &ManagedController{
		Controller: NewController(session),
		shared:     newWaitState(),
	}
	if _, err := mc.AddListener(&managedListener{shared: mc.shared}); err != nil {
		return nil, fmt.Errorf("registering wait-state listener: %w", err)
	}
	return mc, nil
}

// WaitUntilServiceConnected blocks until IsServiceConnected is true.
func (mc *ManagedController) WaitUntilServiceConnected() {
	mc.waitUntil(mc.shared.serviceConnect, mc.IsServiceConnected)
}

// WaitUntilServiceDisconnected blocks until IsServiceConnected is false.
func (mc *ManagedController) WaitUntilServiceDisconnected() {
	mc.waitUntil(mc.shared.serviceDisconnect, func() bool { return !mc.IsServiceConnected() })
}

// WaitUntilConnected blocks until IsConnected is true.
func (mc *ManagedController) WaitUntilConnected() {
	mc.waitUntil(mc.shared.deviceConnect, mc.IsConnected)
}

// WaitUntilDisconnected blocks until IsConnected is false.
func (mc *ManagedController) WaitUntilDisconnected() {
	mc.waitUntil(mc.shared.deviceDisconnect, func() bool { return !mc.IsConnected() })
}

// WaitUntilFocusGained blocks until HasFocus is true.
func (mc *ManagedController) WaitUntilFocusGained() {
	mc.waitUntil(mc.shared.focusGained, mc.HasFocus)
}

// WaitUntilFocusLost blocks until HasFocus is false.
func (mc *ManagedController) WaitUntilFocusLost() {
	mc.waitUntil(mc.shared.focusLost, func() bool { return !mc.HasFocus() })
}

// WaitUntilFrame blocks until at least one new frame of tracking data has
// been reported since the call began. It signals "at least one occurred",
// not one wakeup per frame: frames that arrive while the caller is not yet
// waiting are not queued.
func (mc *ManagedController) WaitUntilFrame() {
	mc.shared.frame.wait()
}

// WaitUntilImages blocks until at least one new set of camera images has
// been reported since the call began.
func (mc *ManagedController) WaitUntilImages() {
	mc.shared.images.wait()
}

// WaitUntilDeviceChange blocks until the device configuration changes: a
// device is plugged in or removed, or a capture setting changes.
func (mc *ManagedController) WaitUntilDeviceChange() {
	mc.shared.deviceChange.wait()
}

// waitUntil re-checks the predicate under the same mutex the notifying side
// broadcasts under, so a transition between an unlocked check and the wait
// cannot be missed.
func (mc *ManagedController) waitUntil(cond *sync.Cond, pred func() bool) {
	mc.shared.mu.Lock()
	for !pred() {
		cond.Wait()
	}
	mc.shared.mu.Unlock()
}

// waitState is shared between a ManagedController and its internal listener.
// Level-triggered properties (service, device, focus) share one mutex and get
// a condition variable per transition direction; each edge-triggered class
// gets its own counter with its own mutex, so frame traffic does not wake
// unrelated waiters.
type waitState struct {
	mu                sync.Mutex
	serviceConnect    *sync.Cond
	serviceDisconnect *sync.Cond
	deviceConnect     *sync.Cond
	deviceDisconnect  *sync.Cond
	focusGained       *sync.Cond
	focusLost         *sync.Cond

	frame        eventCounter
	images       eventCounter
	deviceChange eventCounter
}

func newWaitState() *waitState {
	ws := &waitState{}
	ws.serviceConnect = sync.NewCond(&ws.mu)
	ws.serviceDisconnect = sync.NewCond(&ws.mu)
	ws.deviceConnect = sync.NewCond(&ws.mu)
	ws.deviceDisconnect = sync.NewCond(&ws.mu)
	ws.focusGained = sync.NewCond(&ws.mu)
	ws.focusLost = sync.NewCond(&ws.mu)
	ws.frame.init()
	ws.images.init()
	ws.deviceChange.init()
	return ws
}

// signal wakes every waiter on cond. Taking the mutex first guarantees a
// waiter is either past its predicate check and blocked, or has not taken
// the mutex yet and will see the new state when it does.
func (ws *waitState) signal(cond *sync.Cond) {
	ws.mu.Lock()
	cond.Broadcast()
	ws.mu.Unlock()
}

// eventCounter counts occurrences of one edge-triggered event class. The
// count is monotone and never reset.
type eventCounter struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    uint64
}

func (ec *eventCounter) init() {
	ec.cond = sync.NewCond(&ec.mu)
}

// bump records one occurrence and wakes all waiters. The increment happens
// under the same mutex wait uses for its check, which is what rules out
// lost wakeups.
func (ec *eventCounter) bump() {
	ec.mu.Lock()
	ec.n++
	ec.cond.Broadcast()
	ec.mu.Unlock()
}

// wait blocks until the counter has advanced past the value it held on
// entry. Multiple occurrences before the waiter is scheduled produce a
// single wakeup.
func (ec *eventCounter) wait() {
	ec.mu.Lock()
	old := ec.n
	for ec.n == old {
		ec.cond.Wait()
	}
	ec.mu.Unlock()
}

// managedListener feeds session events into the shared wait state. It is the
// only listener that may touch waitState locks; those locks are never held
// while application listener code runs.
type managedListener struct {
	ListenerAdapter
	shared *waitState
}

func (m *managedListener) OnConnect(Session)    { m.shared.signal(m.shared.deviceConnect) }
func (m *managedListener) OnDisconnect(Session) { m.shared.signal(m.shared.deviceDisconnect) }

func (m *managedListener) OnServiceConnect(Session)    { m.shared.signal(m.shared.serviceConnect) }
func (m *managedListener) OnServiceDisconnect(Session) { m.shared.signal(m.shared.serviceDisconnect) }

func (m *managedListener) OnFocusGained(Session) { m.shared.signal(m.shared.focusGained) }
func (m *managedListener) OnFocusLost(Session)   { m.shared.signal(m.shared.focusLost) }

func (m *managedListener) OnFrame(Session)        { m.shared.frame.bump() }
func (m *managedListener) OnImages(Session)       { m.shared.images.bump() }
func (m *managedListener) OnDeviceChange(Session) { m.shared.deviceChange.bump() }
