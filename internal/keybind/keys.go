package keybind

import "fmt"

// KeyCode identifies a physical key in the macOS virtual key code space.
type KeyCode uint16

// UnknownKeyCode is reported by event sources that cannot attribute an
// event to a physical key.
const UnknownKeyCode KeyCode = 0xFFFF

// Virtual key codes referenced outside this package.
const (
	KeyFunction KeyCode = 0x3F
	KeySpace    KeyCode = 0x31
	KeyReturn   KeyCode = 0x24
	KeyEscape   KeyCode = 0x35
)

var keyNames = map[KeyCode]string{
	0x00: "A", 0x0B: "B", 0x08: "C", 0x02: "D", 0x0E: "E", 0x03: "F", 0x05: "G",
	0x04: "H", 0x22: "I", 0x26: "J", 0x28: "K", 0x25: "L", 0x2E: "M", 0x2D: "N",
	0x1F: "O", 0x23: "P", 0x0C: "Q", 0x0F: "R", 0x01: "S", 0x11: "T", 0x20: "U",
	0x09: "V", 0x0D: "W", 0x07: "X", 0x10: "Y", 0x06: "Z",

	0x1D: "0", 0x12: "1", 0x13: "2", 0x14: "3", 0x15: "4",
	0x17: "5", 0x16: "6", 0x1A: "7", 0x1C: "8", 0x19: "9",

	0x7A: "F1", 0x78: "F2", 0x63: "F3", 0x76: "F4", 0x60: "F5",
	0x61: "F6", 0x62: "F7", 0x64: "F8", 0x65: "F9", 0x6D: "F10",
	0x67: "F11", 0x6F: "F12", 0x69: "F13", 0x6B: "F14", 0x71: "F15",
	0x6A: "F16", 0x40: "F17", 0x4F: "F18", 0x50: "F19", 0x5A: "F20",

	KeySpace:  "SPACE",
	KeyReturn: "RETURN",
	KeyEscape: "ESCAPE",
	0x30:      "TAB",
	0x33:      "DELETE",
	0x75:      "FORWARDDELETE",
	0x32:      "`",
	0x73:      "HOME",
	0x77:      "END",
	0x74:      "PAGEUP",
	0x79:      "PAGEDOWN",
	0x7B:      "LEFT",
	0x7C:      "RIGHT",
	0x7D:      "DOWN",
	0x7E:      "UP",
}

var keyAliases = map[string]KeyCode{
	"ENTER":     KeyReturn,
	"ESC":       KeyEscape,
	"BACKSPACE": 0x33,
	"GRAVE":     0x32,
	"BACKQUOTE": 0x32,
}

var keyByName = func() map[string]KeyCode {
	m := make(map[string]KeyCode, len(keyNames)+len(keyAliases))
	for code, name := range keyNames {
		m[name] = code
	}
	for name, code := range keyAliases {
		m[name] = code
	}
	return m
}()

// Name returns the display name of the key, or its hex code when unnamed.
func (k KeyCode) Name() string {
	if k == KeyFunction {
		return "FN"
	}
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint16(k))
}

// KeyNames returns every named key code.
func KeyNames() map[KeyCode]string {
	out := make(map[KeyCode]string, len(keyNames))
	for k, v := range keyNames {
		out[k] = v
	}
	return out
}
