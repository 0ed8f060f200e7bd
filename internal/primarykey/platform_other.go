//go:build !darwin && !linux && !windows

package primarykey

import "log/slog"

// PlatformSources returns no sources; the reconciler then only sees
// observations fed through Observe.
func PlatformSources(_ *slog.Logger) Sources {
	return Sources{}
}
