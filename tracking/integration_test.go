package tracking_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldisse/airtrack/simdev"
	"github.com/ldisse/airtrack/tracking"
)

// sequenceListener records hook names in invocation order.
type sequenceListener struct {
	mu    sync.Mutex
	calls []string
}

func (l *sequenceListener) add(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

func (l *sequenceListener) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *sequenceListener) OnInit(tracking.Session)              { l.add("init") }
func (l *sequenceListener) OnConnect(tracking.Session)           { l.add("connect") }
func (l *sequenceListener) OnDisconnect(tracking.Session)        { l.add("disconnect") }
func (l *sequenceListener) OnExit(tracking.Session)              { l.add("exit") }
func (l *sequenceListener) OnFrame(tracking.Session)             { l.add("frame") }
func (l *sequenceListener) OnFocusGained(tracking.Session)       { l.add("focus-gained") }
func (l *sequenceListener) OnFocusLost(tracking.Session)         { l.add("focus-lost") }
func (l *sequenceListener) OnServiceConnect(tracking.Session)    { l.add("service-connect") }
func (l *sequenceListener) OnServiceDisconnect(tracking.Session) { l.add("service-disconnect") }
func (l *sequenceListener) OnDeviceChange(tracking.Session)      { l.add("device-change") }
func (l *sequenceListener) OnImages(tracking.Session)            { l.add("images") }

func TestSimulatedLifecycle(t *testing.T) {
	session := simdev.NewSession()
	controller := tracking.NewController(session)
	listener := &sequenceListener{}

	_, err := controller.AddListener(listener)
	require.NoError(t, err)

	session.ConnectDevice()
	session.EmitFrame(110)
	session.EmitImages(64, 64)
	session.DisconnectDevice()
	require.NoError(t, controller.Close())

	assert.Equal(t,
		[]string{"init", "connect", "frame", "images", "disconnect", "exit"},
		listener.snapshot())
}

func TestManagedAgainstSimulatedDevice(t *testing.T) {
	session := simdev.NewSession()
	controller, err := tracking.NewManagedController(session)
	require.NoError(t, err)
	defer controller.Close()

	// Driver goroutine plays the device: service up, device in, focus, then
	// a continuous frame stream until the test is done.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		session.ServiceUp()
		session.ConnectDevice()
		session.GainFocus()
		for {
			select {
			case <-stop:
				return
			case <-time.After(5 * time.Millisecond):
				session.EmitFrame(110)
			}
		}
	}()

	controller.WaitUntilServiceConnected()
	assert.True(t, controller.IsServiceConnected())

	controller.WaitUntilConnected()
	assert.True(t, controller.IsConnected())

	controller.WaitUntilFocusGained()
	assert.True(t, controller.HasFocus())

	controller.WaitUntilFrame()
	assert.True(t, controller.Frame().Valid())
}

func TestManagedWaitersAcrossGoroutines(t *testing.T) {
	session := simdev.NewSession()
	controller, err := tracking.NewManagedController(session)
	require.NoError(t, err)
	defer controller.Close()

	const waiters = 6
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			controller.WaitUntilFrame()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// A frame releases every waiter blocked at delivery time; keep emitting
	// until the last slow-to-start waiter has been released too.
	deadline := time.After(2 * time.Second)
	for {
		session.EmitFrame(110)
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("not all waiters were released by frame deliveries")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
