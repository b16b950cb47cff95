package shoal

import "runtime"

// Config contains all configuration options for a sorter.
type Config struct {
	// MaxWorkers is the soft cap on extra worker goroutines a sorter may
	// spawn. Defaults to runtime.NumCPU()-1, minimum 1. Zero is valid:
	// the sorting goroutine then does all the work itself through the
	// join-by-helping loop.
	//
	// The cap is a soft target: the below-cap check is not synchronized
	// against concurrent spawners, so transient over-provisioning by a
	// small factor is possible.
	MaxWorkers int

	// Registry is the hazard-pointer registry backing the sorter's shared
	// chunk stack. If nil, the process-wide default registry is used.
	Registry *Registry
}

// Option configures a sorter.
type Option func(*Config)

// defaultConfig returns the configuration used when no options are given.
func defaultConfig() Config {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	return Config{MaxWorkers: workers}
}

// validate checks the configuration and returns an error if invalid.
func (c *Config) validate() error {
	if c.MaxWorkers < 0 {
		return errInvalidConfig("MaxWorkers must be >= 0")
	}
	return nil
}

// WithMaxWorkers sets the soft cap on worker goroutines.
// Negative values are ignored; zero disables extra workers entirely.
func WithMaxWorkers(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxWorkers = n
		}
	}
}

// WithRegistry sets an explicit hazard-pointer registry for the sorter's
// shared stack, instead of the process-wide default.
func WithRegistry(r *Registry) Option {
	return func(c *Config) {
		if r != nil {
			c.Registry = r
		}
	}
}
