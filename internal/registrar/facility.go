package registrar

import (
	"errors"
	"fmt"

	"hotkeyd/internal/keybind"
)

// Signature tags every registration this process makes ('HKYD').
const Signature uint32 = 'H'<<24 | 'K'<<16 | 'Y'<<8 | 'D'

var (
	// ErrConflict is returned by a Facility when the combination is already
	// claimed by another registration.
	ErrConflict = errors.New("registrar: combination already registered")

	// ErrNoFacility is recorded when the platform offers no global hotkey service.
	ErrNoFacility = errors.New("registrar: no global hotkey facility")
)

// Registration identifies one combination registered with the facility.
type Registration struct {
	Signature uint32
	ID        uint32
	Code      keybind.KeyCode
	Modifiers keybind.ModifierSet
}

// Binding returns the custom binding this registration watches.
func (r Registration) Binding() keybind.Binding {
	return keybind.Custom(r.Code, r.Modifiers)
}

func (r Registration) String() string {
	return fmt.Sprintf("%s#%d(%s)", signatureString(r.Signature), r.ID, r.Binding())
}

// FacilityEvent is a press or release reported by the facility for one registration.
type FacilityEvent struct {
	Signature uint32
	ID        uint32
	Pressed   bool
}

// Facility is the operating system's global hotkey service.
type Facility interface {
	// Name identifies the facility in logs and edge sources.
	Name() string
	// Install routes every event the facility reports to handler, which may
	// be called from any thread, until remove is called.
	Install(handler func(FacilityEvent)) (remove func() error, err error)
	// Register claims the combination. It returns an error wrapping
	// ErrConflict when another owner holds it.
	Register(reg Registration) (unregister func() error, err error)
}

// Deferred is implemented by facilities whose Register waits on another
// process, such as a compositor asking the user to confirm. The registrar
// calls Register on its own goroutine for them and stays inert until the
// outcome is posted back to the loop.
type Deferred interface {
	Facility
	DeferRegister() bool
}

func signatureString(sig uint32) string {
	b := []byte{byte(sig >> 24), byte(sig >> 16), byte(sig >> 8), byte(sig)}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return fmt.Sprintf("0x%08X", sig)
		}
	}
	return string(b)
}
