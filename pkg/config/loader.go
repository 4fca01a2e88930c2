package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Option adjusts how Load resolves variables.
type Option func(*env.Options)

// WithEnvironment resolves variables from vars instead of the process
// environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) {
		o.Environment = vars
	}
}

// WithPrefix prepends prefix to every variable name, so one struct can be
// loaded for several instances (e.g. "SEED_" for the seeding tool).
func WithPrefix(prefix string) Option {
	return func(o *env.Options) {
		o.Prefix = prefix
	}
}

// Load parses environment variables into cfg using its `env` and
// `envDefault` tags.
func Load(cfg any, opts ...Option) error {
	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := env.ParseWithOptions(cfg, o); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
