//go:build linux && x11hotkey

package registrar

import (
	"fmt"

	"golang.design/x/hotkey"

	"hotkeyd/internal/keybind"
)

// X11 keysyms for the named keys.
var keysyms = map[string]uint16{
	"SPACE":         0x0020,
	"RETURN":        0xff0d,
	"ESCAPE":        0xff1b,
	"TAB":           0xff09,
	"DELETE":        0xff08,
	"FORWARDDELETE": 0xffff,
	"`":             0x0060,
	"HOME":          0xff50,
	"LEFT":          0xff51,
	"UP":            0xff52,
	"RIGHT":         0xff53,
	"DOWN":          0xff54,
	"PAGEUP":        0xff55,
	"PAGEDOWN":      0xff56,
	"END":           0xff57,
}

func nativeKey(code keybind.KeyCode) (hotkey.Key, error) {
	name := code.Name()
	if sym, ok := keysyms[name]; ok {
		return hotkey.Key(sym), nil
	}
	if len(name) == 1 {
		switch c := name[0]; {
		case c >= 'A' && c <= 'Z':
			return hotkey.Key(c + ('a' - 'A')), nil
		case c >= '0' && c <= '9':
			return hotkey.Key(c), nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(name, "F%d", &n); err == nil && n >= 1 && n <= 35 {
		return hotkey.Key(0xffbe + n - 1), nil
	}
	return 0, fmt.Errorf("key %s has no keysym", name)
}

// Mod1 is Alt and Mod4 is Super on the common X11 keymaps.
func nativeModifiers(mods keybind.ModifierSet) []hotkey.Modifier {
	var out []hotkey.Modifier
	if mods.Contains(keybind.Control) {
		out = append(out, hotkey.ModCtrl)
	}
	if mods.Contains(keybind.Option) {
		out = append(out, hotkey.Mod1)
	}
	if mods.Contains(keybind.Shift) {
		out = append(out, hotkey.ModShift)
	}
	if mods.Contains(keybind.Command) {
		out = append(out, hotkey.Mod4)
	}
	return out
}
