package keybind

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBindingSuccess(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		want     Binding
		wantText string
	}{
		{"fn", "fn", Dedicated(), "fn"},
		{"globe alias", " Globe ", Dedicated(), "fn"},
		{"ctrl+shift+space", "Ctrl+Shift+Space", Custom(KeySpace, Control|Shift), "ctrl+shift+space"},
		{"aliases", "alt+command+enter", Custom(KeyReturn, Option|Command), "option+cmd+return"},
		{"bare function key", "F13", Custom(0x69, 0), "f13"},
		{"hex key", "cmd+0x31", Custom(KeySpace, Command), "cmd+space"},
		{"unnamed hex", "ctrl+0x5d", Custom(0x5D, Control), "ctrl+0x5d"},
		{"duplicate modifiers", "ctrl+ctrl+a", Custom(0x00, Control), "ctrl+a"},
		{"whitespace padded", "  cmd + k ", Custom(0x28, Command), "cmd+k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBinding(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantText, got.String())

			again, err := ParseBinding(got.String())
			require.NoError(t, err)
			assert.True(t, again == got, "canonical form must parse back to an equal binding")
		})
	}
}

func TestParseBindingErrors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"unknown modifier", "meta+a"},
		{"missing key", "ctrl+"},
		{"unknown key", "ctrl+banana"},
		{"bad hex", "ctrl+0xZZ"},
		{"reserved code", "ctrl+0xFFFF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBinding(tt.spec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBinding))
		})
	}
}

func TestBindingEquality(t *testing.T) {
	assert.Equal(t, Dedicated(), Binding{})
	assert.True(t, Custom(KeySpace, Shift) == Custom(KeySpace, Shift))
	assert.False(t, Custom(KeySpace, Shift) == Custom(KeySpace, Control))
	assert.False(t, Dedicated() == Custom(KeyFunction, 0))
}

func TestBindingJSON(t *testing.T) {
	type doc struct {
		Active Binding `json:"active"`
	}
	in := doc{Active: Custom(KeyEscape, Command|Option)}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"active":"option+cmd+escape"}`, string(data))

	var out doc
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	require.Error(t, json.Unmarshal([]byte(`{"active":42}`), &out))
}
