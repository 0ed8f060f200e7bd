package primarykey

import (
	"errors"

	"hotkeyd/internal/keybind"
)

// Source tags carried by observations and the edges they produce.
const (
	SourceEventTap      = "event-tap"
	SourceEventMonitor  = "event-monitor"
	SourceHardwareProbe = "hardware-probe"
)

var (
	// ErrStreamUnavailable is returned by a Stream or Monitor that cannot be
	// installed, typically because input-monitoring permission was denied.
	ErrStreamUnavailable = errors.New("primarykey: event stream unavailable")

	// ErrMonitorUnavailable is returned by a Monitor that could not install
	// its hook.
	ErrMonitorUnavailable = errors.New("primarykey: event monitor unavailable")

	// ErrNotRunning is returned by Stop when the reconciler was never started.
	ErrNotRunning = errors.New("primarykey: not running")
)

// Key describes the monitored key: its key code and the native flag bit
// that is asserted while it is held.
type Key struct {
	Code keybind.KeyCode
	Flag uint64
}

// Observation is one report of the key's state from one source.
type Observation struct {
	Source string
	// KeyCode is the physical key the event was attributed to, or
	// keybind.UnknownKeyCode when the source could not tell.
	KeyCode keybind.KeyCode
	// Flags is the native modifier flag word carried by the event.
	Flags uint64
	// Rearmed marks a notice that the platform disabled the stream and it
	// has been re-enabled. Such notices carry no key information.
	Rearmed bool
}

// Stream is the privileged low-level flags-change event stream.
type Stream interface {
	// Start installs the stream and delivers observations to emit from any
	// thread. It returns ErrStreamUnavailable when the privilege is missing.
	// The returned stop function releases every resource Start acquired.
	Start(key Key, emit func(Observation)) (stop func() error, err error)
}

// Monitor is the higher-level fallback event monitor.
type Monitor interface {
	Start(key Key, emit func(Observation)) (stop func() error, err error)
}

// Prober synchronously queries the hardware state of a key.
type Prober interface {
	// KeyState reports whether code is physically down. ok is false when the
	// platform cannot answer.
	KeyState(code keybind.KeyCode) (pressed, ok bool)
}

// Sources bundles the three collaborators the reconciler arbitrates between.
// Any of them may be nil.
type Sources struct {
	Stream  Stream
	Monitor Monitor
	Prober  Prober
}

// StreamFunc adapts a function to Stream and Monitor.
type StreamFunc func(key Key, emit func(Observation)) (func() error, error)

// Start implements Stream.
func (f StreamFunc) Start(key Key, emit func(Observation)) (func() error, error) {
	return f(key, emit)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(code keybind.KeyCode) (bool, bool)

// KeyState implements Prober.
func (f ProberFunc) KeyState(code keybind.KeyCode) (bool, bool) { return f(code) }

// secondaryFnFlag is the native flag bit asserted while the function key is held.
const secondaryFnFlag uint64 = 0x00800000

// DefaultKey returns the dedicated function key. Sources on platforms without
// a native flag word synthesize secondaryFnFlag themselves.
func DefaultKey() Key {
	return Key{Code: keybind.KeyFunction, Flag: secondaryFnFlag}
}
