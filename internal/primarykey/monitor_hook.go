//go:build darwin || linux || windows

package primarykey

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	hook "github.com/robotn/gohook"

	"hotkeyd/internal/keybind"
)

// libuiohook modifier mask bits.
const (
	hookMaskShiftL = 1 << 0
	hookMaskCtrlL  = 1 << 1
	hookMaskMetaL  = 1 << 2
	hookMaskAltL   = 1 << 3
	hookMaskShiftR = 1 << 4
	hookMaskCtrlR  = 1 << 5
	hookMaskMetaR  = 1 << 6
	hookMaskAltR   = 1 << 7
)

const (
	hookStartTimeout = 2 * time.Second
	hookStopTimeout  = 2 * time.Second
)

// foreignKeyCode stands for a key the hook identified that has no virtual key
// code here. It never matches a monitored key and, unlike
// keybind.UnknownKeyCode, is never treated as ambiguous.
const foreignKeyCode keybind.KeyCode = 0xFFFE

// hookMonitor is the fallback monitor built on the global input hook. Only one
// hook can run per process.
type hookMonitor struct {
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

func newHookMonitor(logger *slog.Logger) *hookMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &hookMonitor{logger: logger}
}

// Start implements Monitor.
func (m *hookMonitor) Start(key Key, emit func(Observation)) (func() error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil, errors.New("input hook already running")
	}

	events := hook.Start()
	if err := awaitHookStart(events, hookStartTimeout); err != nil {
		hook.End()
		return nil, err
	}
	m.running = true
	m.logger.Debug("input hook monitor started", "key", key.Code.Name())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if obs, ok := hookObservation(key, ev); ok {
				emit(obs)
			}
		}
	}()

	var once sync.Once
	return func() error {
		var err error
		once.Do(func() {
			hook.End()
			select {
			case <-done:
			case <-time.After(hookStopTimeout):
				err = errors.New("input hook did not stop in time")
			}
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
		})
		return err
	}, nil
}

// awaitHookStart consumes events until the hook reports it is enabled. The
// hook only logs a failed start, so silence means it never came up.
func awaitHookStart(events <-chan hook.Event, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("%w: input hook closed during startup", ErrMonitorUnavailable)
			}
			switch ev.Kind {
			case hook.HookEnabled:
				return nil
			case hook.HookDisabled:
				return fmt.Errorf("%w: input hook disabled during startup", ErrMonitorUnavailable)
			}
		case <-timer.C:
			return fmt.Errorf("%w: input hook did not start within %s", ErrMonitorUnavailable, timeout)
		}
	}
}

// hookObservation translates one hook event. Only key press and release
// events carry state; everything else is dropped. The monitored key's flag is
// only added when the translated code is the monitored key.
func hookObservation(key Key, ev hook.Event) (Observation, bool) {
	var pressed bool
	switch ev.Kind {
	case hook.KeyHold:
		pressed = true
	case hook.KeyUp:
	default:
		return Observation{}, false
	}

	code := hookKeyCode(ev.Rawcode)
	flags := hookMaskFlags(ev.Mask)
	if code == key.Code && pressed {
		flags |= key.Flag
	}
	return Observation{
		Source:  SourceEventMonitor,
		KeyCode: code,
		Flags:   flags,
	}, true
}

// hookMaskFlags converts a libuiohook mask into native modifier flags.
func hookMaskFlags(mask uint16) uint64 {
	var mods keybind.ModifierSet
	if mask&(hookMaskShiftL|hookMaskShiftR) != 0 {
		mods |= keybind.Shift
	}
	if mask&(hookMaskCtrlL|hookMaskCtrlR) != 0 {
		mods |= keybind.Control
	}
	if mask&(hookMaskMetaL|hookMaskMetaR) != 0 {
		mods |= keybind.Command
	}
	if mask&(hookMaskAltL|hookMaskAltR) != 0 {
		mods |= keybind.Option
	}
	return mods.EventFlags()
}
