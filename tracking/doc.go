// Package tracking exposes a hand-tracking device's asynchronous event
// stream through a typed, thread-safe listener interface.
//
// A Session (see the remote and simdev packages for implementations) owns
// the connection to the tracking service and delivers events on its own
// goroutine. A Controller bridges those deliveries into user-supplied
// Listener hooks, containing any panic in listener code so it cannot unwind
// into the delivery loop. ManagedController layers blocking
// "wait until X" helpers on top, usable from any goroutine without
// implementing a listener.
package tracking
