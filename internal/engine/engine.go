// Package engine ties the dedicated-key reconciler and the custom-combination
// registrar to a single gesture classifier and fans the resulting gestures
// out to registered listeners.
//
// Start, Stop and UpdateTiming hand their work to the executor and return
// immediately. Listener registration and state reads are safe from any
// goroutine. Listeners and state watchers run on the executor.
package engine

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"hotkeyd/internal/gesture"
	"hotkeyd/internal/keybind"
	"hotkeyd/internal/mainloop"
	"hotkeyd/internal/primarykey"
	"hotkeyd/internal/registrar"
)

// Token identifies a registered listener or watcher.
type Token string

// State is the observable engine status.
type State struct {
	Binding    keybind.Binding
	HasBinding bool
	Monitoring bool
	// KeyDown mirrors the most recent edge, independent of gesture state.
	KeyDown bool
	// Inert is set when the custom combination could not be registered. The
	// engine keeps monitoring but produces nothing until another binding starts.
	Inert bool
}

type listener struct {
	token Token
	kind  gesture.Kind
	fn    func(gesture.Event)
}

type watcher struct {
	token Token
	fn    func(State)
}

// Engine is the hotkey input engine.
type Engine struct {
	exec   mainloop.Executor
	logger *slog.Logger

	reconciler *primarykey.Reconciler
	registrar  *registrar.Registrar
	classifier *gesture.Classifier

	mu        sync.Mutex
	listeners []listener
	watchers  []watcher
	state     State
}

// New creates an engine on exec. Without WithSources and WithFacility the
// platform backends are used.
func New(exec mainloop.Executor, opts ...Option) *Engine {
	o := options{
		logger: slog.Default(),
		timing: gesture.DefaultTiming(),
		key:    primarykey.DefaultKey(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sources == nil {
		s := primarykey.PlatformSources(o.logger.With("component", "primarykey"))
		o.sources = &s
	}
	if !o.facilitySet {
		o.facility = registrar.PlatformFacility(o.logger.With("component", "registrar"))
	}

	e := &Engine{exec: exec, logger: o.logger}
	e.classifier = gesture.NewClassifier(exec, e.dispatch,
		gesture.WithLogger(o.logger.With("component", "gesture")),
		gesture.WithTiming(o.timing),
	)
	e.reconciler = primarykey.New(exec, o.key, *o.sources, o.logger.With("component", "primarykey"))
	e.reconciler.OnEdge(e.onEdge)
	e.registrar = registrar.New(exec, o.facility, o.logger.With("component", "registrar"))
	e.registrar.OnEdge(e.onEdge)
	e.registrar.OnFailure(func(error) {
		e.updateState(func(s *State) { s.Inert = true })
	})
	return e
}

// Start switches to binding, stopping whichever backend was active. The
// gesture cycle in progress is abandoned without emitting anything.
func (e *Engine) Start(b keybind.Binding) {
	e.exec.Post(func() { e.start(b) })
}

// Stop stops both backends, resets the classifier and clears the state.
func (e *Engine) Stop() {
	e.exec.Post(e.stop)
}

// UpdateTiming replaces the classifier durations. Timers already armed keep
// their deadline.
func (e *Engine) UpdateTiming(t gesture.Timing) {
	e.exec.Post(func() {
		e.classifier.SetTiming(t)
		e.logger.Info("timing updated",
			"hold_threshold", e.classifier.Timing().HoldThreshold,
			"double_tap_window", e.classifier.Timing().DoubleTapWindow)
	})
}

func (e *Engine) start(b keybind.Binding) {
	e.stopBackends()
	e.classifier.Reset()
	e.setState(State{Binding: b, HasBinding: true, Monitoring: true})

	if b.IsDedicated() {
		e.reconciler.Start()
		e.logger.Info("monitoring dedicated key", "binding", b.String())
		return
	}

	e.registrar.Start(b.Code(), b.Modifiers())
	if e.registrar.Err() != nil {
		return
	}
	e.logger.Info("monitoring custom combination", "binding", b.String(), "pending", e.registrar.Pending())
}

func (e *Engine) stop() {
	e.stopBackends()
	e.classifier.Reset()
	e.setState(State{})
	e.logger.Info("monitoring stopped")
}

func (e *Engine) stopBackends() {
	if e.reconciler.Running() {
		if err := e.reconciler.Stop(); err != nil {
			e.logger.Warn("dedicated key teardown", "error", err)
		}
	}
	e.registrar.Stop()
}

func (e *Engine) onEdge(edge gesture.Edge) {
	e.updateState(func(s *State) { s.KeyDown = edge.Pressed })
	e.classifier.Feed(edge)
}

// Register adds a listener for kind and returns its token.
func (e *Engine) Register(kind gesture.Kind, fn func(gesture.Event)) Token {
	tok := Token(uuid.NewString())
	e.mu.Lock()
	e.listeners = append(e.listeners, listener{token: tok, kind: kind, fn: fn})
	e.mu.Unlock()
	return tok
}

// Unregister removes a listener or watcher. Unknown tokens are ignored.
func (e *Engine) Unregister(tok Token) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.token == tok {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
	for i, w := range e.watchers {
		if w.token == tok {
			e.watchers = append(e.watchers[:i:i], e.watchers[i+1:]...)
			return
		}
	}
}

// WatchState calls fn with every state change. Remove it with Unregister.
func (e *Engine) WatchState(fn func(State)) Token {
	tok := Token(uuid.NewString())
	e.mu.Lock()
	e.watchers = append(e.watchers, watcher{token: tok, fn: fn})
	e.mu.Unlock()
	return tok
}

// State returns a snapshot of the observable state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(s State) {
	e.updateState(func(cur *State) { *cur = s })
}

func (e *Engine) updateState(fn func(*State)) {
	e.mu.Lock()
	prev := e.state
	fn(&e.state)
	next := e.state
	watchers := append([]watcher(nil), e.watchers...)
	e.mu.Unlock()

	if next == prev {
		return
	}
	for _, w := range watchers {
		e.guard("state watcher", func() { w.fn(next) })
	}
}

func (e *Engine) dispatch(ev gesture.Event) {
	e.mu.Lock()
	var fns []func(gesture.Event)
	for _, l := range e.listeners {
		if l.kind == ev.Kind {
			fns = append(fns, l.fn)
		}
	}
	e.mu.Unlock()

	for _, fn := range fns {
		e.guard("gesture listener", func() { fn(ev) })
	}
}

// guard runs fn, logging instead of propagating a panic.
func (e *Engine) guard(what string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			e.logger.Error(what+" panicked", "panic", p)
		}
	}()
	fn()
}
