//go:build darwin

package primarykey

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation

#include <ApplicationServices/ApplicationServices.h>
#include <pthread.h>
#include <unistd.h>

// Implemented in Go (tap_darwin_exports.go).
extern void hotkeydTapFlagsChanged(int64_t keycode, uint64_t flags);
extern void hotkeydTapRearmed(void);

static CFMachPortRef flagsTap = NULL;
static CFRunLoopSourceRef flagsTapSource = NULL;
static CFRunLoopRef flagsTapRunLoop = NULL;
static pthread_t flagsTapThread;
static volatile int flagsTapEnabled = 0;
static volatile int flagsTapThreadRunning = 0;

static CGEventRef flagsTapCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon) {
    (void)proxy;
    (void)refcon;

    // The system disables slow or overridden taps; re-arm immediately and let
    // Go reconcile whatever was missed in between.
    if (type == kCGEventTapDisabledByTimeout || type == kCGEventTapDisabledByUserInput) {
        if (flagsTap != NULL) {
            CGEventTapEnable(flagsTap, true);
        }
        hotkeydTapRearmed();
        return event;
    }

    if (type == kCGEventFlagsChanged) {
        int64_t keycode = CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
        hotkeydTapFlagsChanged(keycode, (uint64_t)CGEventGetFlags(event));
    }
    return event;
}

static void* flagsTapLoop(void* arg) {
    (void)arg;
    flagsTapRunLoop = CFRunLoopGetCurrent();
    CFRunLoopAddSource(flagsTapRunLoop, flagsTapSource, kCFRunLoopCommonModes);
    CGEventTapEnable(flagsTap, true);
    flagsTapEnabled = 1;

    CFRunLoopRun();

    flagsTapEnabled = 0;
    flagsTapRunLoop = NULL;
    return NULL;
}

static void flagsTapStop(void) {
    if (flagsTap == NULL) {
        return;
    }
    CGEventTapEnable(flagsTap, false);
    flagsTapEnabled = 0;

    if (flagsTapRunLoop != NULL) {
        CFRunLoopStop(flagsTapRunLoop);
    }
    if (flagsTapThreadRunning) {
        pthread_join(flagsTapThread, NULL);
        flagsTapThreadRunning = 0;
    }
    if (flagsTapSource != NULL) {
        CFRelease(flagsTapSource);
        flagsTapSource = NULL;
    }
    CFRelease(flagsTap);
    flagsTap = NULL;
    flagsTapRunLoop = NULL;
}

// Returns 0 on success, -1 when the tap cannot be created (permission denied),
// -2 when the run loop source fails, -3 when the thread fails, -4 on timeout.
static int flagsTapStart(void) {
    if (flagsTap != NULL) {
        return 1;
    }

    flagsTap = CGEventTapCreate(
        kCGSessionEventTap,
        kCGHeadInsertEventTap,
        kCGEventTapOptionListenOnly,
        CGEventMaskBit(kCGEventFlagsChanged),
        flagsTapCallback,
        NULL
    );
    if (flagsTap == NULL) {
        return -1;
    }

    flagsTapSource = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, flagsTap, 0);
    if (flagsTapSource == NULL) {
        CFRelease(flagsTap);
        flagsTap = NULL;
        return -2;
    }

    flagsTapThreadRunning = 1;
    if (pthread_create(&flagsTapThread, NULL, flagsTapLoop, NULL) != 0) {
        flagsTapThreadRunning = 0;
        CFRelease(flagsTapSource);
        CFRelease(flagsTap);
        flagsTapSource = NULL;
        flagsTap = NULL;
        return -3;
    }

    for (int i = 0; i < 100 && !flagsTapEnabled; i++) {
        usleep(10000);
    }
    if (!flagsTapEnabled) {
        flagsTapStop();
        return -4;
    }
    return 0;
}

static int hidKeyState(uint16_t keycode) {
    return CGEventSourceKeyState(kCGEventSourceStateHIDSystemState, (CGKeyCode)keycode) ? 1 : 0;
}

static int accessibilityTrusted(void) {
    return AXIsProcessTrusted() ? 1 : 0;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"

	"hotkeyd/internal/keybind"
)

// activeTap is the single receiver of C tap callbacks.
var (
	activeTapMu sync.RWMutex
	activeTap   *tapReceiver
)

type tapReceiver struct {
	key  Key
	emit func(Observation)
}

// eventTap is the CGEventTap flags-changed stream.
type eventTap struct{}

// Start implements Stream.
func (eventTap) Start(key Key, emit func(Observation)) (func() error, error) {
	activeTapMu.Lock()
	defer activeTapMu.Unlock()

	if activeTap != nil {
		return nil, errors.New("event tap already installed")
	}

	switch rc := C.flagsTapStart(); rc {
	case 0:
	case -1:
		return nil, fmt.Errorf("%w: CGEventTapCreate refused (input monitoring permission)", ErrStreamUnavailable)
	default:
		return nil, fmt.Errorf("start event tap: code %d", int(rc))
	}

	activeTap = &tapReceiver{key: key, emit: emit}

	var once sync.Once
	return func() error {
		once.Do(func() {
			activeTapMu.Lock()
			activeTap = nil
			activeTapMu.Unlock()
			C.flagsTapStop()
		})
		return nil
	}, nil
}

func deliverTap(obs Observation) {
	activeTapMu.RLock()
	r := activeTap
	activeTapMu.RUnlock()
	if r != nil {
		r.emit(obs)
	}
}

// tapKeyCode maps the raw event key code field to a key code; values outside
// the virtual key range cannot be attributed to a physical key.
func tapKeyCode(raw int64) keybind.KeyCode {
	if raw < 0 || raw > 0x7F {
		return keybind.UnknownKeyCode
	}
	return keybind.KeyCode(raw)
}

// hidProber queries the HID system key state.
type hidProber struct{}

// KeyState implements Prober.
func (hidProber) KeyState(code keybind.KeyCode) (bool, bool) {
	if code == keybind.UnknownKeyCode {
		return false, false
	}
	return C.hidKeyState(C.uint16_t(code)) == 1, true
}

// Trusted reports whether the process holds the accessibility permission the
// privileged stream needs.
func Trusted() bool {
	return C.accessibilityTrusted() == 1
}
