// Package keybind defines the key binding value types shared by the engine
// and its persistence collaborators.
package keybind

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidBinding is wrapped by every parse failure.
var ErrInvalidBinding = errors.New("invalid key binding")

// Kind discriminates the two binding variants.
type Kind uint8

const (
	// KindDedicated monitors the dedicated function key.
	KindDedicated Kind = iota
	// KindCustom monitors a key code plus modifier combination.
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindDedicated:
		return "dedicated"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Binding is an immutable key binding. The zero value is the dedicated key.
// Bindings compare with ==.
type Binding struct {
	kind Kind
	code KeyCode
	mods ModifierSet
}

// Dedicated returns the dedicated-key binding.
func Dedicated() Binding { return Binding{kind: KindDedicated} }

// Custom returns a key code plus modifier binding.
func Custom(code KeyCode, mods ModifierSet) Binding {
	return Binding{kind: KindCustom, code: code, mods: mods & allModifiers}
}

// Kind returns the binding variant.
func (b Binding) Kind() Kind { return b.kind }

// IsDedicated reports whether b is the dedicated-key variant.
func (b Binding) IsDedicated() bool { return b.kind == KindDedicated }

// Code returns the key code of a custom binding.
func (b Binding) Code() KeyCode { return b.code }

// Modifiers returns the modifier set of a custom binding.
func (b Binding) Modifiers() ModifierSet { return b.mods }

// String returns the canonical text form, accepted by ParseBinding.
func (b Binding) String() string {
	if b.kind == KindDedicated {
		return "fn"
	}
	key := strings.ToLower(b.code.Name())
	if b.mods.IsEmpty() {
		return key
	}
	return b.mods.String() + "+" + key
}

// MarshalText implements encoding.TextMarshaler.
func (b Binding) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Binding) UnmarshalText(text []byte) error {
	parsed, err := ParseBinding(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// MarshalJSON encodes the binding as its text form.
func (b Binding) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON decodes a binding from its text form.
func (b *Binding) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBinding, err)
	}
	return b.UnmarshalText([]byte(s))
}

// ParseBinding parses "fn" or a combination like "ctrl+shift+space".
func ParseBinding(spec string) (Binding, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Binding{}, fmt.Errorf("%w: empty spec", ErrInvalidBinding)
	}

	switch strings.ToUpper(raw) {
	case "FN", "FUNCTION", "GLOBE", "DEDICATED":
		return Dedicated(), nil
	}

	parts := strings.Split(raw, "+")
	var mods ModifierSet
	for _, token := range parts[:len(parts)-1] {
		name := strings.ToUpper(strings.TrimSpace(token))
		mod, ok := modifierByName[name]
		if !ok {
			return Binding{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidBinding, token, raw)
		}
		mods |= mod
	}

	code, err := parseKey(parts[len(parts)-1])
	if err != nil {
		return Binding{}, fmt.Errorf("%w: %v", ErrInvalidBinding, err)
	}
	return Custom(code, mods), nil
}

func parseKey(raw string) (KeyCode, error) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return 0, errors.New("missing key token")
	}
	if code, ok := keyByName[token]; ok {
		return code, nil
	}
	if strings.HasPrefix(token, "0X") {
		value, err := strconv.ParseUint(token[2:], 16, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid hex key %q", raw)
		}
		if KeyCode(value) == UnknownKeyCode {
			return 0, fmt.Errorf("key code %q is reserved", raw)
		}
		return KeyCode(value), nil
	}
	return 0, fmt.Errorf("unknown key %q", raw)
}
