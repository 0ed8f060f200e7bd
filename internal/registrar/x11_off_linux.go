//go:build linux && !x11hotkey

package registrar

import "log/slog"

const x11HotkeyBuilt = false

func newX11Facility(*slog.Logger) Facility { return nil }
