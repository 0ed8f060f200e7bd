package gesture

import "time"

// Default durations.
const (
	DefaultHoldThreshold   = 350 * time.Millisecond
	DefaultDoubleTapWindow = 400 * time.Millisecond

	// MinDuration is the smallest threshold the classifier will arm a timer with.
	MinDuration = 10 * time.Millisecond

	maxCooldown     = 250 * time.Millisecond
	minDoubleTapGap = 200 * time.Millisecond
)

// Timing holds the two user-adjustable classifier durations.
type Timing struct {
	HoldThreshold   time.Duration
	DoubleTapWindow time.Duration
}

// DefaultTiming returns 350ms hold / 400ms double-tap.
func DefaultTiming() Timing {
	return Timing{
		HoldThreshold:   DefaultHoldThreshold,
		DoubleTapWindow: DefaultDoubleTapWindow,
	}
}

// Normalize replaces non-positive durations with the defaults and raises
// positive durations below MinDuration to MinDuration.
func (t Timing) Normalize() Timing {
	t.HoldThreshold = normalizeDuration(t.HoldThreshold, DefaultHoldThreshold)
	t.DoubleTapWindow = normalizeDuration(t.DoubleTapWindow, DefaultDoubleTapWindow)
	return t
}

// cooldown is the window after a double-tap during which releases are ignored.
func (t Timing) cooldown() time.Duration {
	return min(t.DoubleTapWindow, maxCooldown)
}

// doubleTapGap is the minimum spacing between two emitted double-taps.
func (t Timing) doubleTapGap() time.Duration {
	return max(minDoubleTapGap, t.DoubleTapWindow/2)
}

func normalizeDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	if d < MinDuration {
		return MinDuration
	}
	return d
}
