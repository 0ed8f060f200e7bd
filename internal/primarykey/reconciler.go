// Package primarykey reconciles several unreliable observations of one
// dedicated modifier-style key into a single press/release edge stream.
//
// Three sources describe the same physical key:
//   - a privileged low-level flags-change stream (primary),
//   - a higher-level event monitor, installed only when the stream is unavailable,
//   - a synchronous hardware key-state probe, used as a tie-breaker.
//
// Observations arrive on OS threads and are marshalled onto the executor;
// the pressed flag is only ever read and written there.
package primarykey

import (
	"errors"
	"fmt"
	"log/slog"

	"hotkeyd/internal/gesture"
	"hotkeyd/internal/keybind"
	"hotkeyd/internal/mainloop"
)

// Reconciler owns the authoritative pressed state of the monitored key.
type Reconciler struct {
	exec    mainloop.Executor
	key     Key
	sources Sources
	logger  *slog.Logger
	onEdge  func(gesture.Edge)

	// Loop-owned state.
	running      bool
	session      uint64
	pressed      bool
	lastSource   string
	streamActive bool
	release      []func() error
}

// New creates a reconciler for key. Edges are delivered to onEdge on the executor.
func New(exec mainloop.Executor, key Key, sources Sources, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		exec:    exec,
		key:     key,
		sources: sources,
		logger:  logger,
	}
}

// OnEdge sets the edge callback. Call before Start.
func (r *Reconciler) OnEdge(fn func(gesture.Edge)) { r.onEdge = fn }

// Key returns the monitored key.
func (r *Reconciler) Key() Key { return r.key }

// Pressed reports the reconciled state. Loop only.
func (r *Reconciler) Pressed() bool { return r.pressed }

// LastSource names the source of the most recent edge. Loop only.
func (r *Reconciler) LastSource() string { return r.lastSource }

// StreamActive reports whether the privileged stream is installed. Loop only.
func (r *Reconciler) StreamActive() bool { return r.streamActive }

// Running reports whether Start has been called without a matching Stop. Loop only.
func (r *Reconciler) Running() bool { return r.running }

// Start installs the sources. It never fails: a missing privilege degrades
// to the fallback monitor and is only logged. Loop only.
func (r *Reconciler) Start() {
	if r.running {
		return
	}
	r.running = true
	r.session++
	r.pressed = false
	r.lastSource = ""

	if r.sources.Stream != nil {
		stop, err := r.sources.Stream.Start(r.key, r.handler(r.session))
		switch {
		case err == nil:
			r.streamActive = true
			r.release = append(r.release, stop)
			r.logger.Info("privileged event stream installed", "key", r.key.Code.Name())
		case errors.Is(err, ErrStreamUnavailable):
			r.logger.Warn("privileged event stream unavailable, using event monitor", "error", err)
		default:
			r.logger.Warn("privileged event stream failed, using event monitor", "error", err)
		}
	}

	if !r.streamActive && r.sources.Monitor != nil {
		stop, err := r.sources.Monitor.Start(r.key, r.handler(r.session))
		if err != nil {
			r.logger.Warn("event monitor unavailable, key will only be polled on stream notices", "error", err)
		} else {
			r.release = append(r.release, stop)
		}
	}
}

// Stop releases every installed source and forgets the pressed state
// without emitting an edge. Loop only.
func (r *Reconciler) Stop() error {
	if !r.running {
		return ErrNotRunning
	}
	r.running = false
	r.session++
	r.pressed = false
	r.streamActive = false

	release := r.release
	r.release = nil

	var errs []error
	for i := len(release) - 1; i >= 0; i-- {
		if err := safeRelease(release[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		r.logger.Warn("event source teardown reported errors", "error", err)
		return err
	}
	return nil
}

// Observe feeds an observation from any thread.
func (r *Reconciler) Observe(obs Observation) {
	r.exec.Post(func() { r.observe(obs) })
}

func (r *Reconciler) handler(session uint64) func(Observation) {
	return func(obs Observation) {
		r.exec.Post(func() {
			if session != r.session {
				return
			}
			r.observe(obs)
		})
	}
}

func (r *Reconciler) observe(obs Observation) {
	if !r.running {
		return
	}
	if obs.Source == SourceEventMonitor && r.streamActive {
		return
	}

	hw, hwOK := r.probe()

	if obs.Rearmed {
		r.logger.Info("privileged event stream re-enabled after platform disable", "source", obs.Source)
		r.correct(hw, hwOK)
		return
	}

	if !r.matches(obs) {
		r.correct(hw, hwOK)
		return
	}

	var inferred bool
	if obs.Flags&r.key.Flag != 0 {
		// Assertion: flag OR probe, so a stale probe cannot hide a press.
		inferred = true
	} else if hwOK {
		// Negation: the probe alone decides, so a missed flag clear cannot
		// hold the key down and a stale flag cannot release it early.
		inferred = hw
	}
	r.set(inferred, obs.Source)
}

// matches reports whether obs describes the monitored key. An ambiguous key
// code matches only when no other modifier is held at the same time.
func (r *Reconciler) matches(obs Observation) bool {
	if obs.KeyCode == r.key.Code {
		return true
	}
	return obs.KeyCode == keybind.UnknownKeyCode && keybind.FromEventFlags(obs.Flags).IsEmpty()
}

// correct fires a probe-sourced edge when the hardware disagrees with the
// cached state, recovering edges the streams dropped.
func (r *Reconciler) correct(hw, ok bool) {
	if ok && hw != r.pressed {
		r.set(hw, SourceHardwareProbe)
	}
}

func (r *Reconciler) set(pressed bool, source string) {
	if pressed == r.pressed {
		return
	}
	r.pressed = pressed
	r.lastSource = source
	r.logger.Debug("edge", "pressed", pressed, "source", source)
	if r.onEdge != nil {
		r.onEdge(gesture.Edge{Pressed: pressed, Source: source})
	}
}

func (r *Reconciler) probe() (bool, bool) {
	if r.sources.Prober == nil {
		return false, false
	}
	return r.sources.Prober.KeyState(r.key.Code)
}

func safeRelease(stop func() error) (err error) {
	if stop == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("event source release panicked: %v", p)
		}
	}()
	return stop()
}
