package tracking

import "time"

// Timestamp is a point in time reported by the tracking service, in
// microseconds since an arbitrary service epoch.
type Timestamp int64

// Micros returns the raw microsecond value.
func (t Timestamp) Micros() int64 {
	return int64(t)
}

// DurationSince returns the elapsed time between earlier and t. earlier must
// not be later than t.
func (t Timestamp) DurationSince(earlier Timestamp) time.Duration {
	return time.Duration(int64(t)-int64(earlier)) * time.Microsecond
}

// Frame is one frame of tracking data. The zero Frame is invalid; Valid
// reports whether a frame carries real data.
//
// Frames are call-scoped views of session state. A caller that needs to keep
// tracking data around copies the fields it needs.
type Frame struct {
	id        int64
	timestamp Timestamp
	fps       float32
	valid     bool
}

// NewFrame builds a valid frame. It is intended for Session implementations;
// applications receive frames from queries.
func NewFrame(id int64, ts Timestamp, fps float32) Frame {
	return Frame{id: id, timestamp: ts, fps: fps, valid: true}
}

// ID returns the frame's unique ID. The service increments it for every
// reported frame.
func (f Frame) ID() int64 {
	return f.id
}

// Timestamp returns the capture time of this frame.
func (f Frame) Timestamp() Timestamp {
	return f.timestamp
}

// FramesPerSecond returns the instantaneous capture rate.
func (f Frame) FramesPerSecond() float32 {
	return f.fps
}

// Valid reports whether this frame contains tracking data. Queries for
// history that does not exist return invalid frames.
func (f Frame) Valid() bool {
	return f.valid
}
