package configloader

import (
	"errors"
	"fmt"
)

// Reasons a configuration could not be loaded.
var (
	ErrNoConfig           = errors.New("no configuration")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrUnsupportedVersion = errors.New("unsupported configuration version")
)

// ConfigError is the error value returned for every load failure. Reason is
// one of the sentinels above; errors.Is matches both Reason and Err.
type ConfigError struct {
	Reason error
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%v: %v", e.Reason, e.Err)
}

func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

func configErr(reason error, format string, args ...any) *ConfigError {
	return &ConfigError{Reason: reason, Err: fmt.Errorf(format, args...)}
}
