package tracking

// Listener is the set of event hooks an application can implement to observe
// a tracking session. Hooks run on the session's delivery goroutine, not on
// the goroutine that registered the listener, so implementations must be
// thread-safe. Hooks should return quickly; a slow hook stalls every
// subsequent event for the same listener.
//
// Embed ListenerAdapter to get no-op defaults for the hooks you don't need.
type Listener interface {
	// OnInit is called once, immediately when the listener is added to a
	// controller, before any other hook.
	OnInit(s Session)

	// OnConnect is called when a tracking device is connected.
	OnConnect(s Session)

	// OnDisconnect is called when a tracking device is disconnected.
	OnDisconnect(s Session)

	// OnExit is called exactly once, when the listener is removed from its
	// controller or the controller is closed. No hook is called after it.
	OnExit(s Session)

	// OnFrame is called once per new frame of tracking data.
	OnFrame(s Session)

	OnFocusGained(s Session)
	OnFocusLost(s Session)

	OnServiceConnect(s Session)
	OnServiceDisconnect(s Session)

	// OnDeviceChange is called when the device configuration changes: a
	// device is plugged in or removed, or a capture setting changes.
	OnDeviceChange(s Session)

	// OnImages is called once per new set of camera images.
	OnImages(s Session)
}

// ListenerAdapter implements Listener with no-ops for every hook.
type ListenerAdapter struct{}

func (ListenerAdapter) OnInit(Session)              {}
func (ListenerAdapter) OnConnect(Session)           {}
func (ListenerAdapter) OnDisconnect(Session)        {}
func (ListenerAdapter) OnExit(Session)              {}
func (ListenerAdapter) OnFrame(Session)             {}
func (ListenerAdapter) OnFocusGained(Session)       {}
func (ListenerAdapter) OnFocusLost(Session)         {}
func (ListenerAdapter) OnServiceConnect(Session)    {}
func (ListenerAdapter) OnServiceDisconnect(Session) {}
func (ListenerAdapter) OnDeviceChange(Session)      {}
func (ListenerAdapter) OnImages(Session)            {}
