//go:build darwin || windows

package registrar

import "log/slog"

// PlatformFacility returns the native global hotkey service.
func PlatformFacility(logger *slog.Logger) Facility {
	return newHotkeyFacility(logger)
}

// SelectFacility returns PlatformFacility; there is no portal here.
func SelectFacility(logger *slog.Logger, _ bool) Facility {
	return PlatformFacility(logger)
}
