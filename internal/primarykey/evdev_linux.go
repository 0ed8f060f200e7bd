//go:build linux

package primarykey

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sync"

	"github.com/holoplot/go-evdev"

	"hotkeyd/internal/keybind"
)

// evdevCodes maps the key codes this package understands to evdev key codes.
var evdevCodes = map[keybind.KeyCode]evdev.EvCode{
	keybind.KeyFunction: evdev.KEY_FN,
	0x37:                evdev.KEY_LEFTMETA,
	0x36:                evdev.KEY_RIGHTMETA,
	0x38:                evdev.KEY_LEFTSHIFT,
	0x3C:                evdev.KEY_RIGHTSHIFT,
	0x3A:                evdev.KEY_LEFTALT,
	0x3D:                evdev.KEY_RIGHTALT,
	0x3B:                evdev.KEY_LEFTCTRL,
	0x3E:                evdev.KEY_RIGHTCTRL,
}

// evdevModifiers maps evdev modifier keys to the modifier they hold.
var evdevModifiers = map[evdev.EvCode]keybind.ModifierSet{
	evdev.KEY_LEFTMETA:   keybind.Command,
	evdev.KEY_RIGHTMETA:  keybind.Command,
	evdev.KEY_LEFTSHIFT:  keybind.Shift,
	evdev.KEY_RIGHTSHIFT: keybind.Shift,
	evdev.KEY_LEFTALT:    keybind.Option,
	evdev.KEY_RIGHTALT:   keybind.Option,
	evdev.KEY_LEFTCTRL:   keybind.Control,
	evdev.KEY_RIGHTCTRL:  keybind.Control,
}

// evdevKeyboard reads every keyboard under /dev/input that reports the
// monitored key. It serves as both the privileged stream and the probe.
type evdevKeyboard struct {
	logger *slog.Logger

	mu      sync.Mutex
	devices []*evdev.InputDevice
	held    map[evdev.EvCode]bool
}

func newEvdevKeyboard(logger *slog.Logger) *evdevKeyboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &evdevKeyboard{logger: logger}
}

// openKeyboards opens every input device capable of reporting code.
func openKeyboards(code evdev.EvCode) ([]*evdev.InputDevice, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}

	var (
		devices []*evdev.InputDevice
		denied  int
	)
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				denied++
			}
			continue
		}
		if !slices.Contains(dev.CapableEvents(evdev.EV_KEY), code) {
			dev.Close()
			continue
		}
		devices = append(devices, dev)
	}

	if len(devices) == 0 {
		if denied > 0 {
			return nil, fmt.Errorf("%w: %d input devices not readable", ErrStreamUnavailable, denied)
		}
		return nil, fmt.Errorf("%w: no input device reports the key", ErrStreamUnavailable)
	}
	return devices, nil
}

// Start implements Stream.
func (k *evdevKeyboard) Start(key Key, emit func(Observation)) (func() error, error) {
	code, ok := evdevCodes[key.Code]
	if !ok {
		return nil, fmt.Errorf("%w: key %s has no evdev equivalent", ErrStreamUnavailable, key.Code.Name())
	}

	k.mu.Lock()
	if k.devices != nil {
		k.mu.Unlock()
		return nil, errors.New("evdev stream already running")
	}
	devices, err := openKeyboards(code)
	if err != nil {
		k.mu.Unlock()
		return nil, err
	}
	k.devices = devices
	k.held = make(map[evdev.EvCode]bool)
	k.mu.Unlock()

	var wg sync.WaitGroup
	for _, dev := range devices {
		wg.Add(1)
		go func(dev *evdev.InputDevice) {
			defer wg.Done()
			k.read(dev, key, code, emit)
		}(dev)
	}
	k.logger.Info("evdev stream started", "devices", len(devices))

	var once sync.Once
	return func() error {
		var errs []error
		once.Do(func() {
			k.mu.Lock()
			devices := k.devices
			k.devices = nil
			k.mu.Unlock()

			for _, dev := range devices {
				if err := dev.Close(); err != nil {
					errs = append(errs, err)
				}
			}
			wg.Wait()
		})
		return errors.Join(errs...)
	}, nil
}

func (k *evdevKeyboard) read(dev *evdev.InputDevice, key Key, code evdev.EvCode, emit func(Observation)) {
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			return
		}
		if ev.Type != evdev.EV_KEY || ev.Value == 2 {
			continue
		}
		obs, ok := k.observation(key, code, ev.Code, ev.Value == 1)
		if ok {
			emit(obs)
		}
	}
}

// observation updates the held-key table and builds the observation for one
// key edge. Keys other than the monitored key and the modifiers are ignored.
func (k *evdevKeyboard) observation(key Key, code, evCode evdev.EvCode, down bool) (Observation, bool) {
	_, isMod := evdevModifiers[evCode]
	if evCode != code && !isMod {
		return Observation{}, false
	}

	k.mu.Lock()
	k.held[evCode] = down
	var mods keybind.ModifierSet
	keyDown := false
	for c, isDown := range k.held {
		if !isDown {
			continue
		}
		if c == code {
			keyDown = true
		}
		mods |= evdevModifiers[c]
	}
	k.mu.Unlock()

	flags := mods.EventFlags()
	if keyDown {
		flags |= key.Flag
	}

	obsCode := keybind.UnknownKeyCode
	for kc, ec := range evdevCodes {
		if ec == evCode {
			obsCode = kc
			break
		}
	}
	return Observation{Source: SourceEventTap, KeyCode: obsCode, Flags: flags}, true
}

// KeyState implements Prober by reading the kernel key bitmap.
func (k *evdevKeyboard) KeyState(code keybind.KeyCode) (bool, bool) {
	ec, ok := evdevCodes[code]
	if !ok {
		return false, false
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.devices) == 0 {
		return false, false
	}
	answered := false
	for _, dev := range k.devices {
		state, err := dev.State(evdev.EV_KEY)
		if err != nil {
			continue
		}
		answered = true
		if state[ec] {
			return true, true
		}
	}
	return false, answered
}
