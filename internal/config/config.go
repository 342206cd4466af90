// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of group evaluation workers.
	WorkerCount int `koanf:"worker_count"`

	// ParallelMinGroups sets the subject-group count below which an
	// evaluation stays sequential.
	ParallelMinGroups int `koanf:"parallel_min_groups"`

	// MaxEvalRows caps the number of records accepted per evaluation request.
	MaxEvalRows int `koanf:"max_eval_rows"`

	// DefaultThreshold applies when a request omits the threshold.
	DefaultThreshold float64 `koanf:"default_threshold"`

	// DefaultMethod applies when a request omits the method.
	DefaultMethod string `koanf:"default_method"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		WorkerCount:       runtime.NumCPU(),
		ParallelMinGroups: 64,
		MaxEvalRows:       1_000_000,
		DefaultThreshold:  0,
		DefaultMethod:     "first_last",
	}
	return c
}
