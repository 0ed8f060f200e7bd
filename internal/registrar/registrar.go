// Package registrar watches an arbitrary key and modifier combination through
// the operating system's global hotkey facility, so it fires regardless of
// which application is focused.
//
// Only one registration is live at a time; Start always tears down the
// previous one first. Facility events are demultiplexed by signature and
// registration id, and everything else is ignored.
package registrar

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"hotkeyd/internal/gesture"
	"hotkeyd/internal/keybind"
	"hotkeyd/internal/mainloop"
)

var nextID atomic.Uint32

// Registrar owns the single active registration. All methods are loop only
// unless noted.
type Registrar struct {
	exec      mainloop.Executor
	facility  Facility
	logger    *slog.Logger
	onEdge    func(gesture.Edge)
	onFailure func(error)

	session    uint64
	pending    *Registration
	active     *Registration
	pressed    bool
	err        error
	remove     func() error
	unregister func() error
}

// New creates a registrar on facility. A nil facility yields a registrar that
// accepts Start but never produces edges.
func New(exec mainloop.Executor, facility Facility, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{exec: exec, facility: facility, logger: logger}
}

// OnEdge sets the edge callback. Call before Start.
func (r *Registrar) OnEdge(fn func(gesture.Edge)) { r.onEdge = fn }

// OnFailure sets the callback run on the loop whenever a Start leaves the
// registrar inert. Call before Start.
func (r *Registrar) OnFailure(fn func(error)) { r.onFailure = fn }

// Pending reports whether a deferred registration is still in flight.
func (r *Registrar) Pending() bool { return r.pending != nil }

// Active returns the live registration, if any.
func (r *Registrar) Active() (Registration, bool) {
	if r.active == nil {
		return Registration{}, false
	}
	return *r.active, true
}

// Err returns why the most recent Start left the registrar inert, or nil.
func (r *Registrar) Err() error { return r.err }

// Pressed reports whether the combination is currently held.
func (r *Registrar) Pressed() bool { return r.pressed }

// Start registers the combination, replacing any previous registration.
// Failures are logged, recorded in Err and reported to the OnFailure
// callback; the registrar then stays inert until the next Start. On a
// Deferred facility Start returns before the outcome is known and Pending
// reports true until it arrives.
func (r *Registrar) Start(code keybind.KeyCode, mods keybind.ModifierSet) {
	r.Stop()
	r.err = nil
	r.session++

	if r.facility == nil {
		r.fail(ErrNoFacility)
		r.logger.Warn("no global hotkey facility, custom binding is inert",
			"binding", keybind.Custom(code, mods).String())
		return
	}

	remove, err := r.facility.Install(r.handler(r.session))
	if err != nil {
		r.fail(fmt.Errorf("install %s event filter: %w", r.facility.Name(), err))
		r.logger.Error("global hotkey event filter not installed", "facility", r.facility.Name(), "error", err)
		return
	}

	reg := Registration{
		Signature: Signature,
		ID:        nextID.Add(1),
		Code:      code,
		Modifiers: mods,
	}
	r.remove = remove

	if d, ok := r.facility.(Deferred); ok && d.DeferRegister() {
		r.pending = &reg
		session := r.session
		r.logger.Debug("global hotkey registration in flight", "registration", reg.String(), "facility", r.facility.Name())
		go func() {
			unregister, err := callRegister(r.facility, reg)
			r.exec.Post(func() { r.registered(session, reg, unregister, err) })
		}()
		return
	}

	unregister, err := callRegister(r.facility, reg)
	r.registered(r.session, reg, unregister, err)
}

// registered settles a Register call made for session.
func (r *Registrar) registered(session uint64, reg Registration, unregister func() error, err error) {
	if session != r.session {
		// Stop already removed the event filter for this session.
		if err == nil {
			if uerr := safeCall(unregister); uerr != nil {
				r.logger.Warn("stale global hotkey teardown failed", "registration", reg.String(), "error", uerr)
			}
		}
		r.logger.Debug("stale global hotkey registration dropped", "registration", reg.String())
		return
	}
	r.pending = nil

	if err != nil {
		remove := r.remove
		r.remove = nil
		if rerr := safeCall(remove); rerr != nil {
			r.logger.Warn("event filter removal failed", "error", rerr)
		}
		if errors.Is(err, ErrConflict) {
			r.logger.Error("combination already claimed by another application",
				"binding", reg.Binding().String(), "facility", r.facility.Name())
		} else {
			r.logger.Error("global hotkey registration failed",
				"binding", reg.Binding().String(), "facility", r.facility.Name(), "error", err)
		}
		r.fail(fmt.Errorf("register %s: %w", reg.Binding(), err))
		return
	}

	r.active = &reg
	r.unregister = unregister
	r.logger.Info("global hotkey registered", "registration", reg.String(), "facility", r.facility.Name())
}

func (r *Registrar) fail(err error) {
	r.err = err
	if r.onFailure != nil {
		r.onFailure(err)
	}
}

// Stop reverses Start. It is safe to call when nothing is registered and
// forgets the pressed state without emitting an edge. A registration still
// in flight is released when it completes.
func (r *Registrar) Stop() {
	r.session++
	r.pressed = false

	if r.pending != nil {
		reg := *r.pending
		remove := r.remove
		r.pending, r.remove = nil, nil
		if err := safeCall(remove); err != nil {
			r.logger.Warn("event filter removal failed", "registration", reg.String(), "error", err)
		}
		r.logger.Debug("global hotkey registration abandoned", "registration", reg.String())
		return
	}
	if r.active == nil {
		return
	}

	reg := *r.active
	unregister, remove := r.unregister, r.remove
	r.active, r.unregister, r.remove = nil, nil, nil

	err := errors.Join(safeCall(unregister), safeCall(remove))
	if err != nil {
		r.logger.Warn("global hotkey teardown reported errors", "registration", reg.String(), "error", err)
		return
	}
	r.logger.Debug("global hotkey unregistered", "registration", reg.String())
}

// Observe feeds a facility event from any thread.
func (r *Registrar) Observe(ev FacilityEvent) {
	r.exec.Post(func() { r.dispatch(ev) })
}

func (r *Registrar) handler(session uint64) func(FacilityEvent) {
	return func(ev FacilityEvent) {
		r.exec.Post(func() {
			if session != r.session {
				return
			}
			r.dispatch(ev)
		})
	}
}

func (r *Registrar) dispatch(ev FacilityEvent) {
	if r.active == nil || ev.Signature != r.active.Signature || ev.ID != r.active.ID {
		return
	}
	if ev.Pressed == r.pressed {
		return
	}
	r.pressed = ev.Pressed
	if r.onEdge != nil {
		r.onEdge(gesture.Edge{Pressed: ev.Pressed, Source: r.facility.Name()})
	}
}

// callRegister runs facility.Register, turning a panic into an error.
func callRegister(f Facility, reg Registration) (unregister func() error, err error) {
	defer func() {
		if p := recover(); p != nil {
			unregister, err = nil, fmt.Errorf("hotkey facility call panicked: %v", p)
		}
	}()
	return f.Register(reg)
}

func safeCall(fn func() error) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("hotkey facility call panicked: %v", p)
		}
	}()
	return fn()
}
