package gesture

import (
	"log/slog"
	"time"

	"hotkeyd/internal/mainloop"
)

// State is the classifier's position in the press/release cycle.
type State uint8

const (
	// Idle: key up, nothing pending.
	Idle State = iota
	// PressedWaiting: key down, hold timer armed.
	PressedWaiting
	// Held: key down, hold-start emitted.
	Held
	// ReleasedPending: key up, single-tap deferred until the double-tap window closes.
	ReleasedPending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PressedWaiting:
		return "pressed-waiting"
	case Held:
		return "held"
	case ReleasedPending:
		return "released-pending"
	default:
		return "unknown"
	}
}

// Classifier turns edges into gestures. Every method must be called on the
// executor's loop; timers it arms run there too.
type Classifier struct {
	exec   mainloop.Executor
	emit   func(Event)
	logger *slog.Logger
	timing Timing

	keyDown   bool
	holdFired bool

	haveRelease   bool
	lastRelease   time.Duration
	haveDoubleTap bool
	lastDoubleTap time.Duration
	cooldownUntil time.Duration

	holdTimer mainloop.Timer
	tapTimer  mainloop.Timer
	// generation invalidates timer callbacks armed before the last Reset.
	generation uint64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// WithTiming sets the initial durations.
func WithTiming(t Timing) Option {
	return func(c *Classifier) { c.timing = t.Normalize() }
}

// NewClassifier creates a classifier that reports gestures to emit.
func NewClassifier(exec mainloop.Executor, emit func(Event), opts ...Option) *Classifier {
	c := &Classifier{
		exec:   exec,
		emit:   emit,
		logger: slog.Default(),
		timing: DefaultTiming(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timing returns the durations used for the next armed timer.
func (c *Classifier) Timing() Timing { return c.timing }

// SetTiming replaces the durations. Timers already armed keep their deadline.
func (c *Classifier) SetTiming(t Timing) {
	c.timing = t.Normalize()
}

// State reports the current cycle position.
func (c *Classifier) State() State {
	switch {
	case c.keyDown && c.holdFired:
		return Held
	case c.keyDown:
		return PressedWaiting
	case c.tapTimer != nil:
		return ReleasedPending
	default:
		return Idle
	}
}

// Feed dispatches an edge to KeyDown or KeyUp.
func (c *Classifier) Feed(e Edge) {
	if e.Pressed {
		c.KeyDown(e.Source)
	} else {
		c.KeyUp(e.Source)
	}
}

// KeyDown handles a press edge. Duplicate presses are ignored.
func (c *Classifier) KeyDown(source string) {
	if c.keyDown {
		return
	}
	c.keyDown = true
	c.cancelTap()
	c.cancelHold()

	gen := c.generation
	c.holdTimer = c.exec.AfterFunc(c.timing.HoldThreshold, func() {
		c.holdElapsed(gen, source)
	})
}

func (c *Classifier) holdElapsed(gen uint64, source string) {
	if gen != c.generation {
		return
	}
	c.holdTimer = nil
	if !c.keyDown || c.holdFired {
		return
	}
	c.holdFired = true
	c.fire(HoldStart, source)
}

// KeyUp handles a release edge. Duplicate releases are ignored.
func (c *Classifier) KeyUp(source string) {
	if !c.keyDown {
		return
	}
	c.keyDown = false
	c.cancelHold()

	now := c.exec.Now()

	if c.holdFired {
		c.holdFired = false
		c.fire(HoldEnd, source)
		c.markRelease(now)
		return
	}

	if now < c.cooldownUntil {
		c.logger.Debug("release inside double-tap cooldown ignored",
			"source", source, "remaining", c.cooldownUntil-now)
		c.markRelease(now)
		return
	}

	if c.haveRelease && now-c.lastRelease <= c.timing.DoubleTapWindow {
		c.cancelTap()
		c.fireDoubleTap(now, source)
		c.cooldownUntil = now + c.timing.cooldown()
		c.markRelease(now)
		return
	}

	c.cancelTap()
	gen := c.generation
	c.tapTimer = c.exec.AfterFunc(c.timing.DoubleTapWindow, func() {
		if gen != c.generation {
			return
		}
		c.tapTimer = nil
		c.fire(SingleTap, source)
	})
	c.markRelease(now)
}

// Reset cancels both timers and returns to the initial state. The cycle in
// progress, if any, produces no further gestures.
func (c *Classifier) Reset() {
	c.generation++
	c.cancelHold()
	c.cancelTap()
	c.keyDown = false
	c.holdFired = false
	c.haveRelease = false
	c.lastRelease = 0
	c.haveDoubleTap = false
	c.lastDoubleTap = 0
	c.cooldownUntil = 0
}

func (c *Classifier) fireDoubleTap(now time.Duration, source string) {
	if c.haveDoubleTap && now-c.lastDoubleTap < c.timing.doubleTapGap() {
		c.logger.Debug("duplicate double-tap suppressed",
			"source", source, "since_last", now-c.lastDoubleTap)
		return
	}
	c.haveDoubleTap = true
	c.lastDoubleTap = now
	c.fire(DoubleTap, source)
}

func (c *Classifier) markRelease(now time.Duration) {
	c.haveRelease = true
	c.lastRelease = now
}

func (c *Classifier) cancelHold() {
	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
	}
}

func (c *Classifier) cancelTap() {
	if c.tapTimer != nil {
		c.tapTimer.Stop()
		c.tapTimer = nil
	}
}

func (c *Classifier) fire(kind Kind, source string) {
	ev := Event{Kind: kind, Timestamp: c.exec.Now(), Source: source}
	c.logger.Debug("gesture", "kind", kind.String(), "source", source, "at", ev.Timestamp)
	if c.emit != nil {
		c.emit(ev)
	}
}
