package config

import (
	"errors"
	"fmt"
)

var (
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrUnknownProvider      = errors.New("unknown provider")
)

// MissingError reports a required setting that is absent.
type MissingError struct {
	Provider string
	Key      string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("no API key found for %s: set %s", e.Provider, e.Key)
}

func (e *MissingError) Is(target error) bool {
	return target == ErrConfigurationMissing
}

type InvalidValueError struct {
	Key   string
	Value string
	Err   error
}

func (e *InvalidValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Key, e.Err)
	}
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Key)
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}
