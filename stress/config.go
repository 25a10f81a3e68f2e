package stress

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailored-agentic-units/multicast/multicast"
)

const (
	defaultMutators     = 4
	defaultInvokers     = 4
	defaultObservers    = 32
	defaultIterations   = 1000
	defaultReleaseRatio = 0.25
)

// Config sizes a stress run.
type Config struct {
	// Mutators is the number of goroutines calling Add, Remove, SetMain,
	// SetAdditional and Clear.
	Mutators int `json:"mutators,omitempty"`

	// Invokers is the number of goroutines calling Invoke.
	Invokers int `json:"invokers,omitempty"`

	// Observers is the size of the observer pool shared by all goroutines.
	Observers int `json:"observers,omitempty"`

	// Iterations is the number of operations performed by each goroutine.
	Iterations int `json:"iterations,omitempty"`

	// ReleaseRatio is the fraction of the pool dropped halfway through the
	// run, leaving the registry to forget those observers on its own. Nil
	// keeps the current value so that an explicit 0 disables the release.
	ReleaseRatio *float64 `json:"release_ratio,omitempty"`

	// Seed makes the operation mix reproducible. Zero picks a random seed.
	Seed uint64 `json:"seed,omitempty"`

	Registry multicast.Config `json:"registry"`
}

// DefaultConfig returns a Config with a moderate amount of contention.
func DefaultConfig() Config {
	ratio := defaultReleaseRatio
	return Config{
		Mutators:     defaultMutators,
		Invokers:     defaultInvokers,
		Observers:    defaultObservers,
		Iterations:   defaultIterations,
		ReleaseRatio: &ratio,
		Registry:     multicast.Config{Name: "stress", Observer: "noop"},
	}
}

// Merge applies non-zero values from source into c. ReleaseRatio is applied
// whenever it is set, including to 0.
func (c *Config) Merge(source *Config) {
	if source.Mutators > 0 {
		c.Mutators = source.Mutators
	}
	if source.Invokers > 0 {
		c.Invokers = source.Invokers
	}
	if source.Observers > 0 {
		c.Observers = source.Observers
	}
	if source.Iterations > 0 {
		c.Iterations = source.Iterations
	}
	if source.ReleaseRatio != nil {
		ratio := *source.ReleaseRatio
		c.ReleaseRatio = &ratio
	}
	if source.Seed != 0 {
		c.Seed = source.Seed
	}

	c.Registry.Merge(&source.Registry)
}

// Validate reports settings that cannot produce a meaningful run.
func (c *Config) Validate() error {
	switch {
	case c.Mutators < 0 || c.Invokers < 0:
		return fmt.Errorf("goroutine counts must not be negative (mutators=%d, invokers=%d)", c.Mutators, c.Invokers)
	case c.Mutators+c.Invokers == 0:
		return fmt.Errorf("at least one mutator or invoker is required")
	case c.Observers <= 0:
		return fmt.Errorf("observers must be positive, got %d", c.Observers)
	case c.Iterations <= 0:
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	case c.releaseRatio() < 0 || c.releaseRatio() > 1:
		return fmt.Errorf("release_ratio must be within [0, 1], got %g", c.releaseRatio())
	}
	return nil
}

func (c *Config) releaseRatio() float64 {
	if c.ReleaseRatio == nil {
		return 0
	}
	return *c.ReleaseRatio
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
