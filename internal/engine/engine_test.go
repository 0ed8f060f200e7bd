package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotkeyd/internal/gesture"
	"hotkeyd/internal/keybind"
	"hotkeyd/internal/mainloop"
	"hotkeyd/internal/primarykey"
	"hotkeyd/internal/registrar"
)

const ms = time.Millisecond

type fakeFacility struct {
	handler     func(registrar.FacilityEvent)
	last        registrar.Registration
	registerErr error
}

func (f *fakeFacility) Name() string { return "fake-facility" }

func (f *fakeFacility) Install(h func(registrar.FacilityEvent)) (func() error, error) {
	f.handler = h
	return func() error { f.handler = nil; return nil }, nil
}

func (f *fakeFacility) Register(reg registrar.Registration) (func() error, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.last = reg
	return func() error { return nil }, nil
}

type rig struct {
	t        *testing.T
	clock    *mainloop.Manual
	emit     func(primarykey.Observation)
	hw       bool
	facility *fakeFacility
	e        *Engine
	events   []gesture.Event
	states   []State
}

func newRig(t *testing.T) *rig {
	t.Helper()
	g := &rig{t: t, clock: mainloop.NewManual(), facility: &fakeFacility{}}
	sources := primarykey.Sources{
		Stream: primarykey.StreamFunc(func(_ primarykey.Key, emit func(primarykey.Observation)) (func() error, error) {
			g.emit = emit
			return func() error { g.emit = nil; return nil }, nil
		}),
		Prober: primarykey.ProberFunc(func(keybind.KeyCode) (bool, bool) { return g.hw, true }),
	}
	g.e = New(g.clock, WithSources(sources), WithFacility(g.facility))
	for _, k := range gesture.AllKinds() {
		g.e.Register(k, func(ev gesture.Event) { g.events = append(g.events, ev) })
	}
	g.e.WatchState(func(s State) { g.states = append(g.states, s) })
	return g
}

func (g *rig) at(d time.Duration) *rig {
	g.clock.AdvanceTo(d)
	return g
}

func (g *rig) fn(d time.Duration, pressed bool) {
	g.at(d)
	require.NotNil(g.t, g.emit, "dedicated key stream not installed")
	key := primarykey.DefaultKey()
	g.hw = pressed
	var flags uint64
	if pressed {
		flags = key.Flag
	}
	g.emit(primarykey.Observation{Source: primarykey.SourceEventTap, KeyCode: key.Code, Flags: flags})
	g.clock.Drain()
}

func (g *rig) combo(d time.Duration, pressed bool) {
	g.at(d)
	require.NotNil(g.t, g.facility.handler, "facility filter not installed")
	g.facility.handler(registrar.FacilityEvent{
		Signature: g.facility.last.Signature,
		ID:        g.facility.last.ID,
		Pressed:   pressed,
	})
	g.clock.Drain()
}

func (g *rig) kinds() []gesture.Kind {
	out := make([]gesture.Kind, 0, len(g.events))
	for _, ev := range g.events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestDedicatedKeyHold(t *testing.T) {
	g := newRig(t)
	g.e.Start(keybind.Dedicated())
	g.clock.Drain()

	g.fn(0, true)
	g.fn(500*ms, false)
	g.at(2 * time.Second)

	require.Equal(t, []gesture.Kind{gesture.HoldStart, gesture.HoldEnd}, g.kinds())
	assert.Equal(t, 350*ms, g.events[0].Timestamp)
	assert.Equal(t, primarykey.SourceEventTap, g.events[1].Source)
}

func TestCustomComboDoubleTap(t *testing.T) {
	g := newRig(t)
	g.e.Start(keybind.Custom(keybind.KeySpace, keybind.Control))
	g.clock.Drain()

	g.combo(0, true)
	g.combo(100*ms, false)
	g.combo(200*ms, true)
	g.combo(250*ms, false)
	g.at(2 * time.Second)

	require.Equal(t, []gesture.Kind{gesture.DoubleTap}, g.kinds())
	assert.Equal(t, "fake-facility", g.events[0].Source)
}

func TestSingleTapListenerOnly(t *testing.T) {
	g := newRig(t)
	var taps int
	g.e.Register(gesture.SingleTap, func(gesture.Event) { taps++ })
	g.e.Start(keybind.Dedicated())
	g.clock.Drain()

	g.fn(0, true)
	g.fn(100*ms, false)
	g.at(2 * time.Second)

	assert.Equal(t, 1, taps)
	assert.Equal(t, []gesture.Kind{gesture.SingleTap}, g.kinds())
}

func TestSwitchingBindingMidHoldEmitsNoHoldEnd(t *testing.T) {
	g := newRig(t)
	g.e.Start(keybind.Dedicated())
	g.clock.Drain()

	g.fn(0, true)
	g.at(400 * ms)
	require.Equal(t, []gesture.Kind{gesture.HoldStart}, g.kinds())

	g.e.Start(keybind.Custom(keybind.KeySpace, keybind.Command))
	g.clock.Drain()
	g.at(3 * time.Second)

	assert.Equal(t, []gesture.Kind{gesture.HoldStart}, g.kinds())
	assert.Nil(t, g.emit, "dedicated stream released on switch")
	assert.False(t, g.e.State().KeyDown)
}

func TestStopCancelsPendingTap(t *testing.T) {
	g := newRig(t)
	g.e.Start(keybind.Dedicated())
	g.clock.Drain()

	g.fn(0, true)
	g.fn(100*ms, false)
	g.e.Stop()
	g.clock.Drain()
	g.at(2 * time.Second)

	assert.Empty(t, g.events)
	assert.Equal(t, State{}, g.e.State())
}

func TestUnregister(t *testing.T) {
	g := newRig(t)
	var got int
	tok := g.e.Register(gesture.SingleTap, func(gesture.Event) { got++ })
	g.e.Unregister(tok)
	g.e.Unregister(tok)
	g.e.Unregister("no-such-token")

	g.e.Start(keybind.Dedicated())
	g.clock.Drain()
	g.fn(0, true)
	g.fn(50*ms, false)
	g.at(time.Second)

	assert.Zero(t, got)
	assert.Len(t, g.events, 1)
}

func TestTokensAreUnique(t *testing.T) {
	g := newRig(t)
	a := g.e.Register(gesture.HoldStart, func(gesture.Event) {})
	b := g.e.Register(gesture.HoldStart, func(gesture.Event) {})
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}

func TestPanickingListenerDoesNotBlockOthers(t *testing.T) {
	g := newRig(t)
	g.e.Register(gesture.SingleTap, func(gesture.Event) { panic("listener") })
	var after int
	g.e.Register(gesture.SingleTap, func(gesture.Event) { after++ })

	g.e.Start(keybind.Dedicated())
	g.clock.Drain()
	g.fn(0, true)
	g.fn(50*ms, false)
	g.at(time.Second)

	assert.Equal(t, 1, after)
}

func TestStateTransitions(t *testing.T) {
	g := newRig(t)
	assert.Equal(t, State{}, g.e.State())

	g.e.Start(keybind.Dedicated())
	g.clock.Drain()
	assert.Equal(t, State{Binding: keybind.Dedicated(), HasBinding: true, Monitoring: true}, g.e.State())

	g.fn(0, true)
	assert.True(t, g.e.State().KeyDown)
	g.fn(500*ms, false)
	assert.False(t, g.e.State().KeyDown)

	g.e.Stop()
	g.clock.Drain()

	require.Len(t, g.states, 4)
	assert.True(t, g.states[0].Monitoring)
	assert.True(t, g.states[1].KeyDown)
	assert.False(t, g.states[2].KeyDown)
	assert.Equal(t, State{}, g.states[3])
}

func TestKeyDownMirrorsEdgesDuringHold(t *testing.T) {
	g := newRig(t)
	g.e.Start(keybind.Dedicated())
	g.clock.Drain()

	g.fn(0, true)
	g.at(400 * ms)
	assert.True(t, g.e.State().KeyDown)
	assert.Equal(t, []gesture.Kind{gesture.HoldStart}, g.kinds())
}

func TestRegistrationConflictIsInert(t *testing.T) {
	g := newRig(t)
	g.facility.registerErr = fmt.Errorf("%w: taken", registrar.ErrConflict)

	b := keybind.Custom(keybind.KeySpace, keybind.Command)
	g.e.Start(b)
	g.clock.Drain()

	s := g.e.State()
	assert.True(t, s.Monitoring)
	assert.True(t, s.Inert)
	assert.Equal(t, b, s.Binding)
	assert.Nil(t, g.facility.handler)

	g.facility.registerErr = nil
	g.e.Start(keybind.Dedicated())
	g.clock.Drain()
	assert.False(t, g.e.State().Inert)
}

func TestUpdateTimingAppliesToNextCycle(t *testing.T) {
	g := newRig(t)
	g.e.Start(keybind.Dedicated())
	g.e.UpdateTiming(gesture.Timing{HoldThreshold: 800 * ms, DoubleTapWindow: 400 * ms})
	g.clock.Drain()

	g.fn(0, true)
	g.at(700 * ms)
	assert.Empty(t, g.events)
	g.at(800 * ms)
	assert.Equal(t, []gesture.Kind{gesture.HoldStart}, g.kinds())
}

func TestWatcherUnregister(t *testing.T) {
	g := newRig(t)
	var calls int
	tok := g.e.WatchState(func(State) { calls++ })
	g.e.Unregister(tok)

	g.e.Start(keybind.Dedicated())
	g.clock.Drain()

	assert.Zero(t, calls)
	assert.Len(t, g.states, 1)
}

type slowFacility struct {
	fakeFacility
	gate chan struct{}
}

func (f *slowFacility) DeferRegister() bool { return true }

func (f *slowFacility) Register(reg registrar.Registration) (func() error, error) {
	<-f.gate
	return f.fakeFacility.Register(reg)
}

func TestDeferredConflictMarksInertLater(t *testing.T) {
	clock := mainloop.NewManual()
	fac := &slowFacility{gate: make(chan struct{})}
	fac.registerErr = fmt.Errorf("%w: taken", registrar.ErrConflict)
	e := New(clock, WithSources(primarykey.Sources{}), WithFacility(fac))

	e.Start(keybind.Custom(keybind.KeySpace, keybind.Command))
	clock.Drain()
	assert.True(t, e.State().Monitoring)
	assert.False(t, e.State().Inert, "outcome not known yet")

	close(fac.gate)
	require.Eventually(t, func() bool {
		clock.Drain()
		return e.State().Inert
	}, 2*time.Second, time.Millisecond)
}
