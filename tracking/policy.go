package tracking

// Policy is a service or device policy flag. Policies are set and cleared
// individually via the controller; the flag values match the service's wire
// encoding.
type Policy uint32

const (
	// PolicyBackgroundFrames delivers frames even when the application does
	// not have device focus.
	PolicyBackgroundFrames Policy = 1 << 0

	// PolicyImages delivers raw camera images.
	PolicyImages Policy = 1 << 1

	// PolicyOptimizeHMD optimizes tracking for a head-mounted device. When
	// clear, tracking is optimized for a device lying flat on a surface.
	PolicyOptimizeHMD Policy = 1 << 2
)

func (p Policy) String() string {
	switch p {
	case PolicyBackgroundFrames:
		return "background-frames"
	case PolicyImages:
		return "images"
	case PolicyOptimizeHMD:
		return "optimize-hmd"
	default:
		return "unknown"
	}
}

// GestureType is a kind of gesture the service can detect. The values match
// the service's wire encoding.
type GestureType int

const (
	// GestureSwipe is a horizontal swiping movement of a hand with fingers
	// extended.
	GestureSwipe GestureType = 1

	// GestureCircle is the movement of a single finger in a circle.
	GestureCircle GestureType = 4

	// GestureScreenTap is a tapping movement parallel to the device.
	GestureScreenTap GestureType = 5

	// GestureKeyTap is a tapping movement towards the device.
	GestureKeyTap GestureType = 6
)

func (g GestureType) String() string {
	switch g {
	case GestureSwipe:
		return "swipe"
	case GestureCircle:
		return "circle"
	case GestureScreenTap:
		return "screen-tap"
	case GestureKeyTap:
		return "key-tap"
	default:
		return "unknown"
	}
}

// GestureState describes the progression of a detected gesture.
type GestureState int

const (
	// GestureStart marks a gesture that is starting just now.
	GestureStart GestureState = 1

	// GestureUpdate marks a gesture started earlier that is continuing.
	GestureUpdate GestureState = 2

	// GestureStop marks a gesture started earlier that is ending.
	GestureStop GestureState = 3
)

func (s GestureState) String() string {
	switch s {
	case GestureStart:
		return "start"
	case GestureUpdate:
		return "update"
	case GestureStop:
		return "stop"
	default:
		return "unknown"
	}
}
