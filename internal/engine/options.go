package engine

import (
	"log/slog"

	"hotkeyd/internal/gesture"
	"hotkeyd/internal/primarykey"
	"hotkeyd/internal/registrar"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	timing      gesture.Timing
	key         primarykey.Key
	sources     *primarykey.Sources
	facility    registrar.Facility
	facilitySet bool
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTiming sets the initial classifier durations.
func WithTiming(t gesture.Timing) Option {
	return func(o *options) { o.timing = t }
}

// WithPrimaryKey overrides the dedicated key.
func WithPrimaryKey(k primarykey.Key) Option {
	return func(o *options) { o.key = k }
}

// WithSources replaces the platform observation sources for the dedicated key.
func WithSources(s primarykey.Sources) Option {
	return func(o *options) { o.sources = &s }
}

// WithFacility replaces the platform global hotkey facility. A nil facility
// leaves custom bindings inert.
func WithFacility(f registrar.Facility) Option {
	return func(o *options) {
		o.facility = f
		o.facilitySet = true
	}
}
