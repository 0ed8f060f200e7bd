//go:build windows

package primarykey

import (
	"golang.org/x/sys/windows"

	"hotkeyd/internal/keybind"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
)

// Virtual key codes for the keys the probe can answer. The function key is
// handled in keyboard firmware and has no virtual key.
var virtualKeys = map[keybind.KeyCode]uintptr{
	0x37: 0x5B, // VK_LWIN
	0x36: 0x5C, // VK_RWIN
	0x38: 0xA0, // VK_LSHIFT
	0x3C: 0xA1, // VK_RSHIFT
	0x3B: 0xA2, // VK_LCONTROL
	0x3E: 0xA3, // VK_RCONTROL
	0x3A: 0xA4, // VK_LMENU
	0x3D: 0xA5, // VK_RMENU
}

type asyncKeyProber struct{}

// KeyState implements Prober.
func (asyncKeyProber) KeyState(code keybind.KeyCode) (bool, bool) {
	vk, ok := virtualKeys[code]
	if !ok {
		return false, false
	}
	if err := procGetAsyncKeyState.Find(); err != nil {
		return false, false
	}
	r, _, _ := procGetAsyncKeyState.Call(vk)
	return r&0x8000 != 0, true
}
