// Package gesture classifies press/release edges of a single key into
// hold, tap and double-tap gestures.
package gesture

import (
	"fmt"
	"time"
)

// Kind is the semantic gesture emitted by the classifier.
type Kind uint8

// Gesture kinds. The set is closed.
const (
	HoldStart Kind = iota + 1
	HoldEnd
	SingleTap
	DoubleTap
)

// AllKinds returns every gesture kind in declaration order.
func AllKinds() []Kind {
	return []Kind{HoldStart, HoldEnd, SingleTap, DoubleTap}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= HoldStart && k <= DoubleTap
}

func (k Kind) String() string {
	switch k {
	case HoldStart:
		return "hold-start"
	case HoldEnd:
		return "hold-end"
	case SingleTap:
		return "single-tap"
	case DoubleTap:
		return "double-tap"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event is one emitted gesture.
type Event struct {
	Kind Kind
	// Timestamp is a monotonic clock reading taken from the executor.
	Timestamp time.Duration
	// Source names the backend whose edge produced the gesture. Diagnostics only.
	Source string
}

// Edge is a physical press or release of the monitored key, as reported by a backend.
type Edge struct {
	Pressed bool
	Source  string
}

func (e Edge) String() string {
	if e.Pressed {
		return "press(" + e.Source + ")"
	}
	return "release(" + e.Source + ")"
}
