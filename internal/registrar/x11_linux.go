//go:build linux && x11hotkey

package registrar

import "log/slog"

// The X11 grab links libX11, whose package init panics without a display,
// so it is only built with the x11hotkey tag.
const x11HotkeyBuilt = true

func newX11Facility(logger *slog.Logger) Facility {
	return newHotkeyFacility(logger)
}
