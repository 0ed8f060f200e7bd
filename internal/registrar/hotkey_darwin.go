//go:build darwin

package registrar

import (
	"fmt"

	"golang.design/x/hotkey"

	"hotkeyd/internal/keybind"
)

// Carbon takes virtual key codes directly.
func nativeKey(code keybind.KeyCode) (hotkey.Key, error) {
	if code > 0x7F {
		return 0, fmt.Errorf("key %s cannot be registered globally", code.Name())
	}
	return hotkey.Key(code), nil
}

func nativeModifiers(mods keybind.ModifierSet) []hotkey.Modifier {
	var out []hotkey.Modifier
	if mods.Contains(keybind.Control) {
		out = append(out, hotkey.ModCtrl)
	}
	if mods.Contains(keybind.Option) {
		out = append(out, hotkey.ModOption)
	}
	if mods.Contains(keybind.Shift) {
		out = append(out, hotkey.ModShift)
	}
	if mods.Contains(keybind.Command) {
		out = append(out, hotkey.ModCmd)
	}
	return out
}
