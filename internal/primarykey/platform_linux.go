//go:build linux

package primarykey

import "log/slog"

// PlatformSources returns the evdev keyboard as both stream and probe, with
// the hook monitor as fallback when /dev/input is not readable.
func PlatformSources(logger *slog.Logger) Sources {
	kb := newEvdevKeyboard(logger)
	return Sources{
		Stream:  kb,
		Monitor: newHookMonitor(logger),
		Prober:  kb,
	}
}
