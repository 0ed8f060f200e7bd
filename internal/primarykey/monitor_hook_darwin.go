package primarykey

import "hotkeyd/internal/keybind"

// hookKeyCode maps a hook rawcode, which is the virtual key code on macOS.
func hookKeyCode(raw uint16) keybind.KeyCode {
	return tapKeyCode(int64(raw))
}
