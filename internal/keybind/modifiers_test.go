package keybind

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModifierSetAlgebra(t *testing.T) {
	a := Command | Shift
	b := Shift | Control

	assert.Equal(t, Command|Shift|Control, a.Union(b))
	assert.Equal(t, Shift, a.Intersect(b))
	assert.Equal(t, Command, a.Without(b))
	assert.True(t, a.Contains(Command))
	assert.False(t, a.Contains(Command|Control))
	assert.True(t, ModifierSet(0).IsEmpty())
	assert.True(t, ModifierSet(0xF0).IsEmpty(), "bits outside the four modifiers are not modifiers")
	assert.Equal(t, "ctrl+option+shift+cmd", (Command | Option | Shift | Control).String())
}

func TestModifierSetNativeRoundTrip(t *testing.T) {
	for m := ModifierSet(0); m <= allModifiers; m++ {
		assert.Equal(t, m, FromEventFlags(m.EventFlags()), "event flags for %s", m)
		assert.Equal(t, m, FromCarbon(m.Carbon()), "carbon mask for %s", m)
	}
}

func TestFromEventFlagsIgnoresForeignBits(t *testing.T) {
	const secondaryFn = 0x00800000
	const capsLock = 0x00010000
	assert.Equal(t, Shift, FromEventFlags(eventFlagShift|secondaryFn|capsLock))
	assert.Equal(t, uint32(0x1100), (Control | Command).Carbon())
}
