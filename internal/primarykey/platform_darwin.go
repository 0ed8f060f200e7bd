//go:build darwin

package primarykey

import "log/slog"

// PlatformSources returns the event tap, the hook monitor and the HID probe.
func PlatformSources(logger *slog.Logger) Sources {
	return Sources{
		Stream:  eventTap{},
		Monitor: newHookMonitor(logger),
		Prober:  hidProber{},
	}
}
