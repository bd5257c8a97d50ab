// Package config loads YAML configuration files with environment
// variable expansion.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by config types that can check themselves.
type Validator interface {
	Validate() error
}

// Load reads filename, expands ${VAR} references from the environment,
// unmarshals the YAML into target, and validates it when target
// implements Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}
