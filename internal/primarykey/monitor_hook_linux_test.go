package primarykey

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hotkeyd/internal/keybind"
)

// X11 keysyms.
const (
	slashRawcode        uint16 = 0x3F // question, shifted slash
	shiftRawcode        uint16 = 0xffe1
	rightAltRawcode     uint16 = 0xffea
	unattributedRawcode uint16 = 0 // NoSymbol
)

func TestHookKeyCodeKeysyms(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		want keybind.KeyCode
	}{
		{"question mark collides with fn code", 0x3F, foreignKeyCode},
		{"letter a", 0x61, foreignKeyCode},
		{"shift left", 0xffe1, 0x38},
		{"shift right", 0xffe2, 0x3C},
		{"control left", 0xffe3, 0x3B},
		{"super left", 0xffeb, 0x37},
		{"meta right", 0xffe8, 0x36},
		{"alt gr", 0xfe03, 0x3D},
		{"no symbol", 0, keybind.UnknownKeyCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hookKeyCode(tt.raw))
		})
	}
}
