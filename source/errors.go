package source

import (
	"fmt"

	"github.com/yoloz/kska/errors"
)

// ConfigError reports a missing or invalid source configuration value. It
// unwraps to errors.ErrMissingConfig or errors.ErrInvalidConfig, which classify
// as fatal.
type ConfigError struct {
	Key    string
	Value  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err == errors.ErrMissingConfig {
		return fmt.Sprintf("%s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("%s: invalid value '%s'", e.Key, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func missing(key string) *ConfigError {
	return &ConfigError{Key: key, Err: errors.ErrMissingConfig}
}

func invalid(key, value, format string, args ...any) *ConfigError {
	return &ConfigError{
		Key:    key,
		Value:  value,
		Reason: fmt.Sprintf("%s: invalid value '%s': %s", key, value, fmt.Sprintf(format, args...)),
		Err:    errors.ErrInvalidConfig,
	}
}
