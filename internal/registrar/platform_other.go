//go:build !darwin && !windows && !linux

package registrar

import "log/slog"

// PlatformFacility returns nil: custom bindings are inert on this platform.
func PlatformFacility(_ *slog.Logger) Facility {
	return nil
}

// SelectFacility returns nil.
func SelectFacility(_ *slog.Logger, _ bool) Facility {
	return nil
}
