//go:build windows

package registrar

import (
	"fmt"

	"golang.design/x/hotkey"

	"hotkeyd/internal/keybind"
)

var virtualKeys = map[string]uint16{
	"SPACE":         0x20,
	"RETURN":        0x0D,
	"ESCAPE":        0x1B,
	"TAB":           0x09,
	"DELETE":        0x08,
	"FORWARDDELETE": 0x2E,
	"`":             0xC0,
	"HOME":          0x24,
	"END":           0x23,
	"PAGEUP":        0x21,
	"PAGEDOWN":      0x22,
	"LEFT":          0x25,
	"UP":            0x26,
	"RIGHT":         0x27,
	"DOWN":          0x28,
}

func nativeKey(code keybind.KeyCode) (hotkey.Key, error) {
	name := code.Name()
	if vk, ok := virtualKeys[name]; ok {
		return hotkey.Key(vk), nil
	}
	if len(name) == 1 && (name[0] >= 'A' && name[0] <= 'Z' || name[0] >= '0' && name[0] <= '9') {
		return hotkey.Key(name[0]), nil
	}
	var n int
	if _, err := fmt.Sscanf(name, "F%d", &n); err == nil && n >= 1 && n <= 24 {
		return hotkey.Key(0x70 + n - 1), nil
	}
	return 0, fmt.Errorf("key %s has no virtual key", name)
}

func nativeModifiers(mods keybind.ModifierSet) []hotkey.Modifier {
	var out []hotkey.Modifier
	if mods.Contains(keybind.Control) {
		out = append(out, hotkey.ModCtrl)
	}
	if mods.Contains(keybind.Option) {
		out = append(out, hotkey.ModAlt)
	}
	if mods.Contains(keybind.Shift) {
		out = append(out, hotkey.ModShift)
	}
	if mods.Contains(keybind.Command) {
		out = append(out, hotkey.ModWin)
	}
	return out
}
