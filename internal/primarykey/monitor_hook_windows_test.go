package primarykey

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hotkeyd/internal/keybind"
)

// Windows virtual-key codes.
const (
	slashRawcode        uint16 = 0xBF // VK_OEM_2
	shiftRawcode        uint16 = 0xA0
	rightAltRawcode     uint16 = 0xA5
	unattributedRawcode uint16 = 0xFF
)

func TestHookKeyCodeVirtualKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		want keybind.KeyCode
	}{
		{"code equal to fn", 0x3F, foreignKeyCode},
		{"letter a", 0x41, foreignKeyCode},
		{"generic shift", 0x10, 0x38},
		{"right shift", 0xA1, 0x3C},
		{"right control", 0xA3, 0x3E},
		{"left win", 0x5B, 0x37},
		{"left menu", 0xA4, 0x3A},
		{"none", 0, keybind.UnknownKeyCode},
		{"fn on some keyboards", 0xFF, keybind.UnknownKeyCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hookKeyCode(tt.raw))
		})
	}
}
