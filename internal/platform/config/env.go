// Package config loads service configuration from the process environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable name declared in `env` struct tags.
const EnvPrefix = "THRONE_OF_DUST_"

// ParseEnv loads configuration from prefixed environment variables.
//
// A field tagged `env:"DB_PATH"` reads THRONE_OF_DUST_DB_PATH.
func ParseEnv(target any) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
