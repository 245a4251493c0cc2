// Package config decodes service configuration from the environment.
// Config structs declare their variables with `env` and `envDefault`
// struct tags; by convention every variable in this project carries the
// HYPTRB_MESSAGING_ prefix so deployments can scope overrides per
// service.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv populates target, a pointer to a tagged config struct, from
// environment variables. Unset variables fall back to their envDefault
// tag.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
