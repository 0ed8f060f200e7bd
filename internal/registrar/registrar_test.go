package registrar

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotkeyd/internal/gesture"
	"hotkeyd/internal/keybind"
	"hotkeyd/internal/mainloop"
)

type fakeFacility struct {
	handler       func(FacilityEvent)
	registered    []Registration
	installs      int
	removes       int
	unregisters   int
	installErr    error
	registerErr   error
	unregisterErr error
}

func (f *fakeFacility) Name() string { return "fake" }

func (f *fakeFacility) Install(handler func(FacilityEvent)) (func() error, error) {
	if f.installErr != nil {
		return nil, f.installErr
	}
	f.installs++
	f.handler = handler
	return func() error {
		f.removes++
		f.handler = nil
		return nil
	}, nil
}

func (f *fakeFacility) Register(reg Registration) (func() error, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered = append(f.registered, reg)
	return func() error {
		f.unregisters++
		return f.unregisterErr
	}, nil
}

func (f *fakeFacility) fire(reg Registration, pressed bool) {
	if f.handler != nil {
		f.handler(FacilityEvent{Signature: reg.Signature, ID: reg.ID, Pressed: pressed})
	}
}

type rig struct {
	clock *mainloop.Manual
	fac   *fakeFacility
	r     *Registrar
	edges []gesture.Edge
}

func newRig() *rig {
	g := &rig{clock: mainloop.NewManual(), fac: &fakeFacility{}}
	g.r = New(g.clock, g.fac, nil)
	g.r.OnEdge(func(e gesture.Edge) { g.edges = append(g.edges, e) })
	return g
}

func TestSignatureSpellsHKYD(t *testing.T) {
	assert.Equal(t, "HKYD", signatureString(Signature))
	assert.Equal(t, "0x00000001", signatureString(1))
}

func TestStartRegistersAndEmitsEdges(t *testing.T) {
	g := newRig()
	g.r.Start(keybind.KeySpace, keybind.Control|keybind.Option)

	reg, ok := g.r.Active()
	require.True(t, ok)
	assert.Equal(t, Signature, reg.Signature)
	assert.Equal(t, keybind.Custom(keybind.KeySpace, keybind.Control|keybind.Option), reg.Binding())
	assert.NoError(t, g.r.Err())

	g.fac.fire(reg, true)
	g.fac.fire(reg, false)
	g.clock.Drain()

	require.Len(t, g.edges, 2)
	assert.Equal(t, gesture.Edge{Pressed: true, Source: "fake"}, g.edges[0])
	assert.Equal(t, gesture.Edge{Pressed: false, Source: "fake"}, g.edges[1])
}

func TestForeignEventsIgnored(t *testing.T) {
	g := newRig()
	g.r.Start(keybind.KeySpace, keybind.Command)
	reg, _ := g.r.Active()

	g.fac.fire(Registration{Signature: 0x41424344, ID: reg.ID}, true)
	g.fac.fire(Registration{Signature: Signature, ID: reg.ID + 100}, true)
	g.clock.Drain()

	assert.Empty(t, g.edges)
}

func TestRepeatedPressCollapses(t *testing.T) {
	g := newRig()
	g.r.Start(keybind.KeySpace, keybind.Command)
	reg, _ := g.r.Active()

	g.fac.fire(reg, true)
	g.fac.fire(reg, true)
	g.fac.fire(reg, false)
	g.fac.fire(reg, false)
	g.clock.Drain()

	assert.Len(t, g.edges, 2)
}

func TestStartIsStopThenStart(t *testing.T) {
	g := newRig()
	g.r.Start(keybind.KeySpace, keybind.Command)
	first, _ := g.r.Active()
	g.r.Start(keybind.KeyReturn, keybind.Shift)
	second, _ := g.r.Active()

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, g.fac.unregisters)
	assert.Equal(t, 1, g.fac.removes)
	assert.Equal(t, 2, g.fac.installs)

	// Events for the first registration are stale now.
	g.r.Observe(FacilityEvent{Signature: first.Signature, ID: first.ID, Pressed: true})
	g.clock.Drain()
	assert.Empty(t, g.edges)
}

func TestQueuedEventFromOldSessionDropped(t *testing.T) {
	g := newRig()
	g.r.Start(keybind.KeySpace, keybind.Command)
	reg, _ := g.r.Active()
	stale := g.fac.handler

	stale(FacilityEvent{Signature: reg.Signature, ID: reg.ID, Pressed: true})
	g.r.Stop()
	g.clock.Drain()

	assert.Empty(t, g.edges)
}

func TestStopWhenIdle(t *testing.T) {
	g := newRig()
	assert.NotPanics(t, func() { g.r.Stop() })
	_, ok := g.r.Active()
	assert.False(t, ok)
}

func TestStopForgetsPressedWithoutEdge(t *testing.T) {
	g := newRig()
	g.r.Start(keybind.KeySpace, keybind.Command)
	reg, _ := g.r.Active()
	g.fac.fire(reg, true)
	g.clock.Drain()

	g.r.Stop()

	assert.False(t, g.r.Pressed())
	assert.Len(t, g.edges, 1)
	assert.Equal(t, 1, g.fac.unregisters)
	assert.Equal(t, 1, g.fac.removes)
}

func TestConflictLeavesRegistrarInert(t *testing.T) {
	g := newRig()
	g.fac.registerErr = fmt.Errorf("%w: taken", ErrConflict)

	g.r.Start(keybind.KeySpace, keybind.Command)

	_, ok := g.r.Active()
	assert.False(t, ok)
	assert.ErrorIs(t, g.r.Err(), ErrConflict)
	assert.Equal(t, 1, g.fac.removes, "filter removed after failed registration")

	// A later Start with a free combination recovers.
	g.fac.registerErr = nil
	g.r.Start(keybind.KeyReturn, keybind.Command)
	_, ok = g.r.Active()
	assert.True(t, ok)
	assert.NoError(t, g.r.Err())
}

func TestInstallFailure(t *testing.T) {
	g := newRig()
	g.fac.installErr = errors.New("no bus")

	g.r.Start(keybind.KeySpace, keybind.Command)

	_, ok := g.r.Active()
	assert.False(t, ok)
	assert.Error(t, g.r.Err())
	assert.Empty(t, g.fac.registered)
}

func TestNilFacility(t *testing.T) {
	r := New(mainloop.NewManual(), nil, nil)
	r.Start(keybind.KeySpace, keybind.Command)

	assert.ErrorIs(t, r.Err(), ErrNoFacility)
	assert.NotPanics(t, r.Stop)
}

func TestTeardownErrorsDoNotLeakRegistration(t *testing.T) {
	g := newRig()
	g.fac.unregisterErr = errors.New("busy")
	g.r.Start(keybind.KeySpace, keybind.Command)

	g.r.Stop()

	_, ok := g.r.Active()
	assert.False(t, ok)
	assert.Equal(t, 1, g.fac.removes)
}

// deferredFacility holds every Register call until gate is closed.
type deferredFacility struct {
	*fakeFacility
	gate chan struct{}
}

func (f *deferredFacility) DeferRegister() bool { return true }

func (f *deferredFacility) Register(reg Registration) (func() error, error) {
	<-f.gate
	return f.fakeFacility.Register(reg)
}

func newDeferredRig() (*rig, *deferredFacility) {
	g := &rig{clock: mainloop.NewManual(), fac: &fakeFacility{}}
	d := &deferredFacility{fakeFacility: g.fac, gate: make(chan struct{})}
	g.r = New(g.clock, d, nil)
	g.r.OnEdge(func(e gesture.Edge) { g.edges = append(g.edges, e) })
	return g, d
}

// await drains the loop until cond holds.
func (g *rig) await(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		g.clock.Drain()
		return cond()
	}, 2*time.Second, time.Millisecond)
}

func TestDeferredRegistrationSettlesOnLoop(t *testing.T) {
	g, d := newDeferredRig()

	g.r.Start(keybind.KeySpace, keybind.Control)

	assert.True(t, g.r.Pending())
	_, ok := g.r.Active()
	assert.False(t, ok, "inert until the facility answers")
	assert.NoError(t, g.r.Err())

	close(d.gate)
	g.await(t, func() bool { return !g.r.Pending() })

	reg, ok := g.r.Active()
	require.True(t, ok)
	assert.Equal(t, keybind.Custom(keybind.KeySpace, keybind.Control), reg.Binding())

	g.fac.fire(reg, true)
	g.clock.Drain()
	assert.Equal(t, []gesture.Edge{{Pressed: true, Source: "fake"}}, g.edges)
}

func TestDeferredRegistrationFailureRecorded(t *testing.T) {
	g, d := newDeferredRig()
	g.fac.registerErr = fmt.Errorf("%w: taken", ErrConflict)
	var failures []error
	g.r.OnFailure(func(err error) { failures = append(failures, err) })

	g.r.Start(keybind.KeySpace, keybind.Command)
	assert.Empty(t, failures)

	close(d.gate)
	g.await(t, func() bool { return !g.r.Pending() })

	_, ok := g.r.Active()
	assert.False(t, ok)
	assert.ErrorIs(t, g.r.Err(), ErrConflict)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], ErrConflict)
	assert.Equal(t, 1, g.fac.removes)
}

func TestStaleDeferredRegistrationReleased(t *testing.T) {
	g, d := newDeferredRig()
	g.r.Start(keybind.KeySpace, keybind.Command)
	g.r.Stop()

	assert.False(t, g.r.Pending())
	assert.Equal(t, 1, g.fac.removes)

	close(d.gate)
	g.await(t, func() bool { return g.fac.unregisters == 1 })

	_, ok := g.r.Active()
	assert.False(t, ok, "completion for an abandoned session is not adopted")
	assert.NoError(t, g.r.Err())
}

func TestSynchronousFailureReported(t *testing.T) {
	g := newRig()
	g.fac.registerErr = errors.New("grab failed")
	var failures []error
	g.r.OnFailure(func(err error) { failures = append(failures, err) })

	g.r.Start(keybind.KeySpace, keybind.Command)

	require.Len(t, failures, 1)
	assert.Equal(t, g.r.Err(), failures[0])
}

func TestPanickingRegisterIsAnError(t *testing.T) {
	r := New(mainloop.NewManual(), panicFacility{}, nil)
	assert.NotPanics(t, func() { r.Start(keybind.KeySpace, keybind.Command) })
	assert.ErrorContains(t, r.Err(), "panicked")
}

type panicFacility struct{}

func (panicFacility) Name() string { return "panic" }

func (panicFacility) Install(func(FacilityEvent)) (func() error, error) {
	return func() error { return nil }, nil
}

func (panicFacility) Register(Registration) (func() error, error) { panic("no display") }
