package registrar

import (
	"errors"
	"strings"
	"syscall"
)

// errHotkeyAlreadyRegistered is ERROR_HOTKEY_ALREADY_REGISTERED, returned by
// RegisterHotKey when another window owns the combination.
const errHotkeyAlreadyRegistered syscall.Errno = 1409

// isConflict reports whether a native registration error means another owner
// holds the combination. Generic failures such as an ungrabbable key are not
// conflicts.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errHotkeyAlreadyRegistered) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "badaccess") || strings.Contains(msg, "hot key is already registered")
}
