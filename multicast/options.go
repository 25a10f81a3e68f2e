package multicast

import (
	"log/slog"

	"github.com/tailored-agentic-units/multicast/observability"
)

// Option configures a Registry at construction. Options passed to
// NewFromConfig are applied after the config and override it.
type Option func(*settings)

type settings struct {
	name     string
	observer observability.Observer
	metrics  *Metrics
}

// WithName sets the name used as the Source of emitted events.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithObserver routes lifecycle events to o.
func WithObserver(o observability.Observer) Option {
	return func(s *settings) { s.observer = o }
}

// WithLogger routes lifecycle events to logger through a SlogObserver.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.observer = observability.NewSlogObserver(logger) }
}

// WithMetrics shares m between registries, e.g. to aggregate counters for a
// family of publishers.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) { s.metrics = m }
}
