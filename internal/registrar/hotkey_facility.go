//go:build darwin || windows || (linux && x11hotkey)

package registrar

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/hotkey"
)

// hotkeyFacility registers combinations with the native global hotkey service
// (Carbon on macOS, RegisterHotKey on Windows, XGrabKey on X11). The service
// has no signature concept, so each registration's events are tagged here.
type hotkeyFacility struct {
	logger *slog.Logger

	mu      sync.RWMutex
	handler func(FacilityEvent)
}

func newHotkeyFacility(logger *slog.Logger) *hotkeyFacility {
	if logger == nil {
		logger = slog.Default()
	}
	return &hotkeyFacility{logger: logger}
}

func (f *hotkeyFacility) Name() string { return "global-hotkey" }

// Install implements Facility.
func (f *hotkeyFacility) Install(handler func(FacilityEvent)) (func() error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handler != nil {
		return nil, errors.New("event filter already installed")
	}
	f.handler = handler

	var once sync.Once
	return func() error {
		once.Do(func() {
			f.mu.Lock()
			f.handler = nil
			f.mu.Unlock()
		})
		return nil
	}, nil
}

func (f *hotkeyFacility) deliver(ev FacilityEvent) {
	f.mu.RLock()
	h := f.handler
	f.mu.RUnlock()
	if h != nil {
		h(ev)
	}
}

// Register implements Facility.
func (f *hotkeyFacility) Register(reg Registration) (func() error, error) {
	key, err := nativeKey(reg.Code)
	if err != nil {
		return nil, err
	}
	hk := hotkey.New(nativeModifiers(reg.Modifiers), key)
	if err := hk.Register(); err != nil {
		if isConflict(err) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			case <-hk.Keydown():
				f.deliver(FacilityEvent{Signature: reg.Signature, ID: reg.ID, Pressed: true})
			case <-hk.Keyup():
				f.deliver(FacilityEvent{Signature: reg.Signature, ID: reg.ID, Pressed: false})
			}
		}
	}()

	var once sync.Once
	return func() error {
		var err error
		once.Do(func() {
			close(stop)
			<-done
			err = hk.Unregister()
		})
		return err
	}, nil
}
