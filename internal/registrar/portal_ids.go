package registrar

import (
	"fmt"
	"strings"

	"hotkeyd/internal/keybind"
)

// shortcutID names a registration in the desktop portal, which identifies
// shortcuts by string.
func shortcutID(reg Registration) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(signatureString(reg.Signature)), reg.ID)
}

// parseShortcutID reverses shortcutID. Shortcuts bound by other clients of
// the same session do not parse.
func parseShortcutID(id string) (sig, regID uint32, ok bool) {
	prefix, num, found := strings.Cut(id, "-")
	if !found || len(prefix) != 4 {
		return 0, 0, false
	}
	p := strings.ToUpper(prefix)
	sig = uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
	if _, err := fmt.Sscanf(num, "%d", &regID); err != nil || fmt.Sprint(regID) != num {
		return 0, 0, false
	}
	return sig, regID, true
}

// preferredTrigger formats the combination in the shortcuts XDG spec syntax,
// e.g. "CTRL+SHIFT+a". The compositor is free to ignore it.
func preferredTrigger(code keybind.KeyCode, mods keybind.ModifierSet) string {
	var parts []string
	if mods.Contains(keybind.Control) {
		parts = append(parts, "CTRL")
	}
	if mods.Contains(keybind.Option) {
		parts = append(parts, "ALT")
	}
	if mods.Contains(keybind.Shift) {
		parts = append(parts, "SHIFT")
	}
	if mods.Contains(keybind.Command) {
		parts = append(parts, "LOGO")
	}
	name := code.Name()
	if len(name) == 1 {
		name = strings.ToLower(name)
	}
	switch name {
	case "SPACE":
		name = "space"
	case "RETURN":
		name = "Return"
	case "ESCAPE":
		name = "Escape"
	case "TAB":
		name = "Tab"
	}
	return strings.Join(append(parts, name), "+")
}
