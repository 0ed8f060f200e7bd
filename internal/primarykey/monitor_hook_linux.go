package primarykey

import "hotkeyd/internal/keybind"

// On X11 the hook reports the keysym as rawcode. Only the modifier keysyms
// have virtual key code equivalents here; the fn key usually produces no
// keysym at all.
var hookKeysyms = map[uint16]keybind.KeyCode{
	0xffe1: 0x38, // Shift_L
	0xffe2: 0x3C, // Shift_R
	0xffe3: 0x3B, // Control_L
	0xffe4: 0x3E, // Control_R
	0xffe7: 0x37, // Meta_L
	0xffe8: 0x36, // Meta_R
	0xffeb: 0x37, // Super_L
	0xffec: 0x36, // Super_R
	0xffe9: 0x3A, // Alt_L
	0xffea: 0x3D, // Alt_R
	0xfe03: 0x3D, // ISO_Level3_Shift
}

// hookKeyCode maps an X11 keysym. NoSymbol cannot be attributed.
func hookKeyCode(raw uint16) keybind.KeyCode {
	if raw == 0 {
		return keybind.UnknownKeyCode
	}
	if code, ok := hookKeysyms[raw]; ok {
		return code
	}
	return foreignKeyCode
}
