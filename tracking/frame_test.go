package tracking

import (
	"testing"
	"time"
)

func TestFrame(t *testing.T) {
	t.Run("zero frame is invalid", func(t *testing.T) {
		var frame Frame
		if frame.Valid() {
			t.Error("zero Frame must be invalid")
		}
	})

	t.Run("constructed frame carries its data", func(t *testing.T) {
		frame := NewFrame(42, 1_000_000, 115.5)
		if !frame.Valid() {
			t.Fatal("NewFrame must produce a valid frame")
		}
		if frame.ID() != 42 {
			t.Errorf("ID() = %d, want 42", frame.ID())
		}
		if frame.Timestamp() != 1_000_000 {
			t.Errorf("Timestamp() = %d, want 1000000", frame.Timestamp())
		}
		if frame.FramesPerSecond() != 115.5 {
			t.Errorf("FramesPerSecond() = %f, want 115.5", frame.FramesPerSecond())
		}
	})
}

func TestTimestamp(t *testing.T) {
	earlier := Timestamp(1_000_000)
	later := Timestamp(3_500_000)

	if got := later.DurationSince(earlier); got != 2500*time.Millisecond {
		t.Errorf("DurationSince() = %v, want 2.5s", got)
	}
	if got := later.Micros(); got != 3_500_000 {
		t.Errorf("Micros() = %d, want 3500000", got)
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{EventInit, "init"},
		{EventConnect, "connect"},
		{EventDisconnect, "disconnect"},
		{EventExit, "exit"},
		{EventFrame, "frame"},
		{EventFocusGained, "focus-gained"},
		{EventFocusLost, "focus-lost"},
		{EventServiceConnect, "service-connect"},
		{EventServiceDisconnect, "service-disconnect"},
		{EventDeviceChange, "device-change"},
		{EventImages, "images"},
		{Event(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.event.String(); got != tt.want {
			t.Errorf("Event(%d).String() = %q, want %q", int(tt.event), got, tt.want)
		}
	}
}

func TestPolicyAndGestureStrings(t *testing.T) {
	if got := PolicyOptimizeHMD.String(); got != "optimize-hmd" {
		t.Errorf("PolicyOptimizeHMD.String() = %q", got)
	}
	if got := GestureKeyTap.String(); got != "key-tap" {
		t.Errorf("GestureKeyTap.String() = %q", got)
	}
	if got := GestureUpdate.String(); got != "update" {
		t.Errorf("GestureUpdate.String() = %q", got)
	}
	if got := Policy(1 << 10).String(); got != "unknown" {
		t.Errorf("unknown policy String() = %q", got)
	}
}
