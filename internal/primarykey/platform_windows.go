//go:build windows

package primarykey

import "log/slog"

// PlatformSources returns the hook monitor and the async key-state probe.
// Windows has no privileged flags stream.
func PlatformSources(logger *slog.Logger) Sources {
	return Sources{
		Monitor: newHookMonitor(logger),
		Prober:  asyncKeyProber{},
	}
}
