package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotkeyd/internal/mainloop"
)

const ms = time.Millisecond

type harness struct {
	t      *testing.T
	clock  *mainloop.Manual
	c      *Classifier
	events []Event
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{t: t, clock: mainloop.NewManual()}
	h.c = NewClassifier(h.clock, func(e Event) { h.events = append(h.events, e) }, opts...)
	return h
}

func (h *harness) at(d time.Duration) *harness {
	h.clock.AdvanceTo(d)
	return h
}

func (h *harness) down(d time.Duration) { h.at(d).c.KeyDown("test") }
func (h *harness) up(d time.Duration)   { h.at(d).c.KeyUp("test") }

func (h *harness) kinds() []Kind {
	out := make([]Kind, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Kind)
	}
	return out
}

func TestHoldScenario(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	assert.Equal(t, PressedWaiting, h.c.State())
	h.up(500 * ms)
	h.at(2 * time.Second)

	require.Equal(t, []Kind{HoldStart, HoldEnd}, h.kinds())
	assert.Equal(t, 350*ms, h.events[0].Timestamp)
	assert.Equal(t, 500*ms, h.events[1].Timestamp)
	assert.Equal(t, "test", h.events[0].Source)
	assert.Equal(t, Idle, h.c.State())
}

func TestHeldState(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.at(400 * ms)
	assert.Equal(t, Held, h.c.State())
}

func TestDoubleTapScenario(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.up(100 * ms)
	assert.Equal(t, ReleasedPending, h.c.State())
	h.down(200 * ms)
	h.up(250 * ms)
	h.at(2 * time.Second)

	require.Equal(t, []Kind{DoubleTap}, h.kinds())
	assert.Equal(t, 250*ms, h.events[0].Timestamp)
}

func TestSingleTapScenario(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.up(100 * ms)
	h.at(499 * ms)
	assert.Empty(t, h.events, "single-tap must wait for the double-tap window")
	h.at(2 * time.Second)

	require.Equal(t, []Kind{SingleTap}, h.kinds())
	assert.Equal(t, 500*ms, h.events[0].Timestamp)
}

func TestSeparatedTapsEachYieldOneSingleTap(t *testing.T) {
	h := newHarness(t)

	start := time.Duration(0)
	for i := 0; i < 5; i++ {
		h.down(start)
		h.up(start + 50*ms)
		start += time.Second
	}
	h.at(start + time.Second)

	assert.Equal(t, []Kind{SingleTap, SingleTap, SingleTap, SingleTap, SingleTap}, h.kinds())
}

func TestDoubleTapWindowIsInclusive(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.up(100 * ms)
	h.down(450 * ms)
	h.up(500 * ms) // exactly 400ms after the first release
	h.at(2 * time.Second)

	assert.Equal(t, []Kind{DoubleTap}, h.kinds())
}

func TestReleaseJustOutsideWindowIsTwoTaps(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.up(100 * ms)
	h.at(2 * time.Second)
	h.down(2*time.Second + 0)
	h.up(2*time.Second + 50*ms)
	h.at(4 * time.Second)

	assert.Equal(t, []Kind{SingleTap, SingleTap}, h.kinds())
}

func TestThirdTapInsideCooldownSuppressed(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.up(100 * ms)
	h.down(200 * ms)
	h.up(250 * ms)
	h.down(300 * ms)
	h.up(480 * ms) // 230ms after the double-tap, inside min(400ms, 250ms)
	h.at(3 * time.Second)

	assert.Equal(t, []Kind{DoubleTap}, h.kinds())
}

func TestDoubleTapRateGuard(t *testing.T) {
	h := newHarness(t, WithTiming(Timing{HoldThreshold: 350 * ms, DoubleTapWindow: 100 * ms}))

	h.down(0)
	h.up(20 * ms)
	h.down(40 * ms)
	h.up(60 * ms) // double-tap, cooldown until 160ms
	h.down(170 * ms)
	h.up(180 * ms) // outside cooldown, arms a single-tap
	h.down(190 * ms)
	h.up(200 * ms) // would be a second double-tap 140ms after the first
	h.at(2 * time.Second)

	require.Equal(t, []Kind{DoubleTap}, h.kinds())
	assert.Equal(t, 60*ms, h.events[0].Timestamp)
}

func TestHoldReleaseNeverTaps(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.up(351 * ms)
	h.at(3 * time.Second)

	assert.Equal(t, []Kind{HoldStart, HoldEnd}, h.kinds())
}

func TestDuplicateEdgesAreIdempotent(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.down(10 * ms)
	h.down(20 * ms)
	h.up(100 * ms)
	h.up(110 * ms)
	h.at(2 * time.Second)

	assert.Equal(t, []Kind{SingleTap}, h.kinds())
	assert.Equal(t, 500*ms, h.events[0].Timestamp, "duplicate release must not restart the window")
}

func TestDuplicateDownDoesNotRearmHold(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.down(300 * ms)
	h.at(360 * ms)

	require.Equal(t, []Kind{HoldStart}, h.kinds())
	assert.Equal(t, 350*ms, h.events[0].Timestamp)
}

func TestResetDuringHoldTimer(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.at(200 * ms)
	h.c.Reset()
	h.at(2 * time.Second)
	h.up(2*time.Second + 10*ms)
	h.at(4 * time.Second)

	assert.Empty(t, h.events)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestResetDuringHoldEmitsNoHoldEnd(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.at(500 * ms)
	h.c.Reset()
	h.up(600 * ms)
	h.at(2 * time.Second)

	assert.Equal(t, []Kind{HoldStart}, h.kinds())
}

func TestResetDuringPendingTap(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.up(100 * ms)
	h.at(300 * ms)
	h.c.Reset()
	h.at(2 * time.Second)

	assert.Empty(t, h.events)
	assert.Equal(t, Idle, h.c.State())
}

func TestResetForgetsLastRelease(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.up(100 * ms)
	h.c.Reset()
	h.down(150 * ms)
	h.up(200 * ms)
	h.at(2 * time.Second)

	assert.Equal(t, []Kind{SingleTap}, h.kinds())
}

func TestNewPressPreemptsPendingTap(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.up(100 * ms)
	h.down(300 * ms)
	h.at(1 * time.Second)

	assert.Equal(t, []Kind{HoldStart}, h.kinds(), "a press while a tap is pending discards the tap")
}

func TestTimingChangeAppliesToNextTimerOnly(t *testing.T) {
	h := newHarness(t)

	h.down(0)
	h.at(100 * ms)
	h.c.SetTiming(Timing{HoldThreshold: 1 * time.Second, DoubleTapWindow: 400 * ms})
	h.at(400 * ms)
	require.Equal(t, []Kind{HoldStart}, h.kinds(), "armed hold timer keeps its deadline")
	assert.Equal(t, 350*ms, h.events[0].Timestamp)
	h.up(500 * ms)

	h.events = nil
	h.down(5 * time.Second)
	h.at(5*time.Second + 900*ms)
	assert.Empty(t, h.events)
	h.at(6 * time.Second)
	assert.Equal(t, []Kind{HoldStart}, h.kinds())
}

func TestTimingNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Timing
		want Timing
	}{
		{"defaults kept", DefaultTiming(), DefaultTiming()},
		{"zero replaced", Timing{}, DefaultTiming()},
		{"negative replaced", Timing{HoldThreshold: -time.Second, DoubleTapWindow: -1}, DefaultTiming()},
		{"tiny raised", Timing{HoldThreshold: time.Millisecond, DoubleTapWindow: 2 * ms}, Timing{MinDuration, MinDuration}},
		{"custom kept", Timing{HoldThreshold: 500 * ms, DoubleTapWindow: 300 * ms}, Timing{500 * ms, 300 * ms}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestTimingDerivedWindows(t *testing.T) {
	assert.Equal(t, 250*ms, DefaultTiming().cooldown())
	assert.Equal(t, 200*ms, DefaultTiming().doubleTapGap())

	wide := Timing{HoldThreshold: 350 * ms, DoubleTapWindow: 600 * ms}
	assert.Equal(t, 250*ms, wide.cooldown())
	assert.Equal(t, 300*ms, wide.doubleTapGap())

	narrow := Timing{HoldThreshold: 350 * ms, DoubleTapWindow: 100 * ms}
	assert.Equal(t, 100*ms, narrow.cooldown())
	assert.Equal(t, 200*ms, narrow.doubleTapGap())
}

func TestKindStrings(t *testing.T) {
	want := []string{"hold-start", "hold-end", "single-tap", "double-tap"}
	for i, k := range AllKinds() {
		assert.True(t, k.Valid())
		assert.Equal(t, want[i], k.String())
	}
	assert.False(t, Kind(0).Valid())
	assert.False(t, Kind(9).Valid())
}
