//go:build linux

package registrar

import (
	"log/slog"
	"os"
)

// PlatformFacility returns the desktop portal on Wayland sessions and the
// X11 global hotkey service otherwise.
func PlatformFacility(logger *slog.Logger) Facility {
	return SelectFacility(logger, false)
}

// SelectFacility is PlatformFacility with the portal forced on when
// preferPortal is set. Without any display it returns nil, which leaves
// custom bindings inert with ErrNoFacility.
func SelectFacility(logger *slog.Logger, preferPortal bool) Facility {
	switch chooseLinuxFacility(os.Getenv, preferPortal, x11HotkeyBuilt) {
	case facilityPortal:
		return newPortalFacility(logger)
	case facilityX11:
		return newX11Facility(logger)
	default:
		if logger != nil {
			logger.Debug("no display, global hotkeys unavailable")
		}
		return nil
	}
}

const (
	facilityNone   = ""
	facilityPortal = "desktop-portal"
	facilityX11    = "global-hotkey"
)

// chooseLinuxFacility picks a facility from the session environment. The
// X11 grab is only chosen when it was compiled in and a display is set;
// every other graphical session goes through the portal.
func chooseLinuxFacility(getenv func(string) string, preferPortal, x11Built bool) string {
	wayland := getenv("XDG_SESSION_TYPE") == "wayland" || getenv("WAYLAND_DISPLAY") != ""
	display := getenv("DISPLAY") != ""
	switch {
	case preferPortal || wayland:
		return facilityPortal
	case display && x11Built:
		return facilityX11
	case display:
		return facilityPortal
	default:
		return facilityNone
	}
}
