package primarykey

import "hotkeyd/internal/keybind"

// Windows virtual-key codes with a virtual key code equivalent here.
var hookVirtualKeys = map[uint16]keybind.KeyCode{
	0x10: 0x38, // VK_SHIFT
	0xA0: 0x38, // VK_LSHIFT
	0xA1: 0x3C, // VK_RSHIFT
	0x11: 0x3B, // VK_CONTROL
	0xA2: 0x3B, // VK_LCONTROL
	0xA3: 0x3E, // VK_RCONTROL
	0x12: 0x3A, // VK_MENU
	0xA4: 0x3A, // VK_LMENU
	0xA5: 0x3D, // VK_RMENU
	0x5B: 0x37, // VK_LWIN
	0x5C: 0x36, // VK_RWIN
}

// hookKeyCode maps a Windows virtual-key code. Keyboards that report fn at
// all send 0 or 0xFF, which cannot be attributed.
func hookKeyCode(raw uint16) keybind.KeyCode {
	if raw == 0 || raw == 0xFF {
		return keybind.UnknownKeyCode
	}
	if code, ok := hookVirtualKeys[raw]; ok {
		return code
	}
	return foreignKeyCode
}
