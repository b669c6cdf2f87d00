package simdev

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ldisse/airtrack/tracking"
)

// countingSink tallies deliveries per event kind.
type countingSink struct {
	mu     sync.Mutex
	counts map[tracking.Event]int
	order  []tracking.Event
}

func newCountingSink() *countingSink {
	return &countingSink{counts: make(map[tracking.Event]int)}
}

func (c *countingSink) DeliverEvent(s tracking.Session, kind tracking.Event, token tracking.Token) {
	c.mu.Lock()
	c.counts[kind]++
	c.order = append(c.order, kind)
	c.mu.Unlock()
}

func (c *countingSink) count(kind tracking.Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[kind]
}

func TestRegistration(t *testing.T) {
	t.Run("delivers init synchronously inside AddListener", func(t *testing.T) {
		session := NewSession()
		sink := newCountingSink()

		if err := session.AddListener(tracking.NewToken(), sink); err != nil {
			t.Fatalf("AddListener() error = %v", err)
		}
		if got := sink.count(tracking.EventInit); got != 1 {
			t.Errorf("init deliveries = %d, want 1 before AddListener returns", got)
		}
	})

	t.Run("rejects registrations on demand", func(t *testing.T) {
		session := NewSession()
		session.RejectRegistrations(true)

		sink := newCountingSink()
		if err := session.AddListener(tracking.NewToken(), sink); err == nil {
			t.Fatal("expected a registration error")
		}
		if got := sink.count(tracking.EventInit); got != 0 {
			t.Errorf("rejected sink saw %d init deliveries", got)
		}

		session.RejectRegistrations(false)
		if err := session.AddListener(tracking.NewToken(), sink); err != nil {
			t.Errorf("AddListener() after un-reject error = %v", err)
		}
	})

	t.Run("closed session rejects registration", func(t *testing.T) {
		session := NewSession()
		if err := session.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := session.AddListener(tracking.NewToken(), newCountingSink()); err != tracking.ErrSessionClosed {
			t.Errorf("expected ErrSessionClosed, got %v", err)
		}
	})

	t.Run("removed listener receives nothing further", func(t *testing.T) {
		session := NewSession()
		sink := newCountingSink()
		token := tracking.NewToken()

		if err := session.AddListener(token, sink); err != nil {
			t.Fatalf("AddListener() error = %v", err)
		}
		session.RemoveListener(token)
		session.ConnectDevice()
		session.EmitFrame(110)

		if got := sink.count(tracking.EventConnect) + sink.count(tracking.EventFrame); got != 0 {
			t.Errorf("removed sink saw %d deliveries", got)
		}
	})
}

func TestStateTransitions(t *testing.T) {
	session := NewSession()
	sink := newCountingSink()
	if err := session.AddListener(tracking.NewToken(), sink); err != nil {
		t.Fatalf("AddListener() error = %v", err)
	}

	session.ServiceUp()
	if !session.IsServiceConnected() {
		t.Error("IsServiceConnected() should be true after ServiceUp")
	}
	session.ConnectDevice()
	if !session.IsConnected() {
		t.Error("IsConnected() should be true after ConnectDevice")
	}
	session.GainFocus()
	if !session.HasFocus() {
		t.Error("HasFocus() should be true after GainFocus")
	}

	session.LoseFocus()
	session.DisconnectDevice()
	session.ServiceDown()

	for _, tt := range []struct {
		kind tracking.Event
		want int
	}{
		{tracking.EventServiceConnect, 1},
		{tracking.EventConnect, 1},
		{tracking.EventFocusGained, 1},
		{tracking.EventFocusLost, 1},
		{tracking.EventDisconnect, 1},
		{tracking.EventServiceDisconnect, 1},
	} {
		if got := sink.count(tt.kind); got != tt.want {
			t.Errorf("%s deliveries = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestFrameHistory(t *testing.T) {
	t.Run("frames accumulate with rising IDs and timestamps", func(t *testing.T) {
		session := NewSession()
		first := session.EmitFrame(110)
		second := session.EmitFrame(110)

		if second.ID() != first.ID()+1 {
			t.Errorf("frame IDs %d, %d are not consecutive", first.ID(), second.ID())
		}
		if second.Timestamp() <= first.Timestamp() {
			t.Error("timestamps must advance per frame")
		}
		if got := session.FrameAt(0); got.ID() != second.ID() {
			t.Errorf("FrameAt(0).ID() = %d, want %d", got.ID(), second.ID())
		}
		if got := session.FrameAt(1); got.ID() != first.ID() {
			t.Errorf("FrameAt(1).ID() = %d, want %d", got.ID(), first.ID())
		}
	})

	t.Run("requests beyond accumulated history are invalid", func(t *testing.T) {
		session := NewSession()
		session.EmitFrame(110)

		if session.FrameAt(1).Valid() {
			t.Error("FrameAt(1) with one frame of history should be invalid")
		}
	})

	t.Run("history is capped at the service limit", func(t *testing.T) {
		session := NewSession()
		for i := 0; i < historySize+10; i++ {
			session.EmitFrame(110)
		}

		oldest := session.FrameAt(tracking.MaxFrameHistory)
		if !oldest.Valid() {
			t.Fatal("oldest retained frame should be valid")
		}
		// 70 frames emitted, ring holds the last 60: oldest has ID 11.
		if oldest.ID() != 11 {
			t.Errorf("oldest frame ID = %d, want 11", oldest.ID())
		}
	})
}

func TestImages(t *testing.T) {
	session := NewSession()
	sink := newCountingSink()
	if err := session.AddListener(tracking.NewToken(), sink); err != nil {
		t.Fatalf("AddListener() error = %v", err)
	}

	session.EmitImages(64, 32)

	if got := sink.count(tracking.EventImages); got != 1 {
		t.Fatalf("images deliveries = %d, want 1", got)
	}

	images := session.Images()
	if len(images) != 2 {
		t.Fatalf("expected a stereo pair, got %d images", len(images))
	}
	if images[0].Camera() != tracking.CameraLeft || images[1].Camera() != tracking.CameraRight {
		t.Error("expected left then right camera images")
	}
	for _, im := range images {
		if !im.Valid() {
			t.Error("emitted image should be valid")
		}
		if im.Width() != 64 || im.Height() != 32 {
			t.Errorf("image dimensions %dx%d, want 64x32", im.Width(), im.Height())
		}
		if im.Distortion().Empty() {
			t.Error("emitted image should carry a distortion map")
		}
		if !im.Distortion().Entry(5, 5).Valid() {
			t.Error("simulated distortion entries should be in range")
		}
	}
	if images[0].SequenceID() != images[1].SequenceID() {
		t.Error("stereo pair must share a sequence ID")
	}
}

func TestPoliciesAndGestures(t *testing.T) {
	session := NewSession()

	session.SetPolicy(tracking.PolicyImages)
	session.SetPolicy(tracking.PolicyOptimizeHMD)
	if !session.IsPolicySet(tracking.PolicyImages) {
		t.Error("PolicyImages should be set")
	}
	session.ClearPolicy(tracking.PolicyImages)
	if session.IsPolicySet(tracking.PolicyImages) {
		t.Error("PolicyImages should be clear")
	}
	if !session.IsPolicySet(tracking.PolicyOptimizeHMD) {
		t.Error("clearing one policy must not disturb another")
	}

	session.EnableGesture(tracking.GestureCircle)
	if !session.IsGestureEnabled(tracking.GestureCircle) {
		t.Error("circle gesture should be enabled")
	}
	if session.IsGestureEnabled(tracking.GestureSwipe) {
		t.Error("swipe gesture was never enabled")
	}
	session.DisableGesture(tracking.GestureCircle)
	if session.IsGestureEnabled(tracking.GestureCircle) {
		t.Error("circle gesture should be disabled")
	}
}

func TestFeed(t *testing.T) {
	session := NewSession()
	sink := newCountingSink()
	if err := session.AddListener(tracking.NewToken(), sink); err != nil {
		t.Fatalf("AddListener() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		session.Feed(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sink.count(tracking.EventFrame) < 3 {
		select {
		case <-deadline:
			t.Fatal("feed produced fewer than 3 frames")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("feed did not stop on context cancellation")
	}
}
