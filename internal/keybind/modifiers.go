package keybind

import "strings"

// ModifierSet is a bitset of the four modifier keys a custom binding may require.
type ModifierSet uint8

// Modifier bits.
const (
	Command ModifierSet = 1 << iota
	Option
	Shift
	Control

	allModifiers = Command | Option | Shift | Control
)

// Native event flag bits (CGEventFlags on macOS).
const (
	eventFlagShift     uint64 = 0x00020000
	eventFlagControl   uint64 = 0x00040000
	eventFlagAlternate uint64 = 0x00080000
	eventFlagCommand   uint64 = 0x00100000
)

// Hotkey registration modifier bits (Carbon cmdKey, shiftKey, optionKey, controlKey).
const (
	carbonCmdKey     uint32 = 0x0100
	carbonShiftKey   uint32 = 0x0200
	carbonOptionKey  uint32 = 0x0800
	carbonControlKey uint32 = 0x1000
)

var modifierOrder = []struct {
	mod    ModifierSet
	name   string
	flag   uint64
	carbon uint32
}{
	{Control, "ctrl", eventFlagControl, carbonControlKey},
	{Option, "option", eventFlagAlternate, carbonOptionKey},
	{Shift, "shift", eventFlagShift, carbonShiftKey},
	{Command, "cmd", eventFlagCommand, carbonCmdKey},
}

var modifierByName = map[string]ModifierSet{
	"CMD":     Command,
	"COMMAND": Command,
	"SUPER":   Command,
	"WIN":     Command,
	"OPT":     Option,
	"OPTION":  Option,
	"ALT":     Option,
	"SHIFT":   Shift,
	"CTRL":    Control,
	"CONTROL": Control,
}

// Union returns the modifiers present in either set.
func (m ModifierSet) Union(o ModifierSet) ModifierSet { return (m | o) & allModifiers }

// Intersect returns the modifiers present in both sets.
func (m ModifierSet) Intersect(o ModifierSet) ModifierSet { return m & o & allModifiers }

// Without returns m with every modifier of o removed.
func (m ModifierSet) Without(o ModifierSet) ModifierSet { return m &^ o & allModifiers }

// Contains reports whether every modifier of o is in m.
func (m ModifierSet) Contains(o ModifierSet) bool { return m&o == o }

// IsEmpty reports whether no modifier is set.
func (m ModifierSet) IsEmpty() bool { return m&allModifiers == 0 }

// String renders the set in canonical order, e.g. "ctrl+shift".
func (m ModifierSet) String() string {
	var parts []string
	for _, e := range modifierOrder {
		if m&e.mod != 0 {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, "+")
}

// EventFlags converts the set to the platform-native event flag word.
func (m ModifierSet) EventFlags() uint64 {
	var flags uint64
	for _, e := range modifierOrder {
		if m&e.mod != 0 {
			flags |= e.flag
		}
	}
	return flags
}

// FromEventFlags extracts the modifier set from a native event flag word.
// Bits that do not denote one of the four modifiers are ignored.
func FromEventFlags(flags uint64) ModifierSet {
	var m ModifierSet
	for _, e := range modifierOrder {
		if flags&e.flag != 0 {
			m |= e.mod
		}
	}
	return m
}

// Carbon converts the set to the hotkey registration modifier mask.
func (m ModifierSet) Carbon() uint32 {
	var mask uint32
	for _, e := range modifierOrder {
		if m&e.mod != 0 {
			mask |= e.carbon
		}
	}
	return mask
}

// FromCarbon extracts the modifier set from a hotkey registration modifier mask.
func FromCarbon(mask uint32) ModifierSet {
	var m ModifierSet
	for _, e := range modifierOrder {
		if mask&e.carbon != 0 {
			m |= e.mod
		}
	}
	return m
}
