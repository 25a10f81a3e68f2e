package multicast

import (
	"fmt"

	"github.com/tailored-agentic-units/multicast/observability"
)

// Config is the JSON-serializable description of a Registry.
type Config struct {
	// Name is the Source of emitted events.
	Name string `json:"name,omitempty"`

	// Observer names an observer registered with observability.RegisterObserver.
	Observer string `json:"observer,omitempty"`
}

// DefaultConfig returns a Config that emits no events.
func DefaultConfig() Config {
	return Config{
		Name:     "multicast",
		Observer: "noop",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// NewFromConfig creates a Registry from cfg merged over DefaultConfig. The
// only failure is an observer name that is not registered.
func NewFromConfig[T any](cfg *Config, opts ...Option) (*Registry[T], error) {
	merged := DefaultConfig()
	if cfg != nil {
		merged.Merge(cfg)
	}

	obs, err := observability.GetObserver(merged.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	base := []Option{WithName(merged.Name), WithObserver(obs)}
	return New[T](append(base, opts...)...), nil
}
