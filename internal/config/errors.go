package config

import (
	"errors"
	"fmt"
)

// Configuration errors
var (
	// ErrInvalidConfig is matched by every ValidationError
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownField is returned when the file contains keys this version does not know
	ErrUnknownField = errors.New("unknown configuration field")

	// ErrNegativeSize is returned for a negative reader.max_file_size
	ErrNegativeSize = errors.New("size must not be negative")

	// ErrInvalidOutputFormat is returned for an unsupported output.format
	ErrInvalidOutputFormat = errors.New("invalid output format")
)

// ValidationError names the offending key.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrInvalidConfig, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidConfig, e.Err}
}
