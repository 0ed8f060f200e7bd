package config

import (
	"errors"
	"fmt"
	"strings"

	"hotkeyd/internal/gesture"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// maxTimingMs bounds both gesture durations.
const maxTimingMs = 10000

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
	Warning bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// IsWarning returns true if this is a non-fatal validation issue.
func (e *ValidationError) IsWarning() bool { return e.Warning }

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Warnings returns only warning-level validation errors.
func (e ValidationErrors) Warnings() ValidationErrors {
	var warnings ValidationErrors
	for _, err := range e {
		if err.IsWarning() {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Errors returns only error-level validation errors.
func (e ValidationErrors) Errors() ValidationErrors {
	var errs ValidationErrors
	for _, err := range e {
		if !err.IsWarning() {
			errs = append(errs, err)
		}
	}
	return errs
}

// HasErrors returns true if there are any non-warning errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) ValidationError {
	return ValidationError{Field: field, Message: "required field is missing"}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max any) ValidationError {
	return ValidationError{Field: field, Message: fmt.Sprintf("value must be between %v and %v", min, max)}
}

// Validate returns ErrInvalidConfig wrapping the error-level findings of
// ValidateConfig, or nil when only warnings remain.
func (c *Config) Validate() error {
	errs := ValidateConfig(c).Errors()
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
}

// ValidateConfig performs semantic validation of the configuration. The
// result includes warnings.
func ValidateConfig(c *Config) ValidationErrors {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateHotkey(&c.Hotkey)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, RequiredFieldError("store.path"))
	}
	return errs
}

func validateHotkey(h *HotkeyConfig) ValidationErrors {
	var errs ValidationErrors

	if _, _, err := h.ParsedBinding(); err != nil {
		errs = append(errs, ValidationError{Field: "hotkey.binding", Message: err.Error()})
	}

	minMs := int(gesture.MinDuration.Milliseconds())
	for _, f := range []struct {
		name  string
		value int
	}{
		{"hotkey.hold_threshold_ms", h.HoldThresholdMs},
		{"hotkey.double_tap_window_ms", h.DoubleTapWindowMs},
	} {
		switch {
		case f.value < 0 || f.value > maxTimingMs:
			errs = append(errs, RangeError(f.name, 0, maxTimingMs))
		case f.value == 0:
			errs = append(errs, ValidationError{Field: f.name, Message: "unset, the default applies", Warning: true})
		case f.value < minMs:
			errs = append(errs, ValidationError{
				Field:   f.name,
				Message: fmt.Sprintf("raised to the %dms minimum", minMs),
				Warning: true,
			})
		}
	}

	if h.PreferPortal {
		if b, ok, _ := h.ParsedBinding(); ok && b.IsDedicated() {
			errs = append(errs, ValidationError{
				Field:   "hotkey.prefer_portal",
				Message: "ignored for the dedicated key binding",
				Warning: true,
			})
		}
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch strings.ToLower(l.Output) {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}
	return errs
}
