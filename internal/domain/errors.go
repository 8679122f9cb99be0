package domain

import (
	"errors"
	"fmt"
)

// TransientFetchError marks a network or timeout failure on ticker, candle or
// sentiment fetches. Cycles degrade or skip on it; it is never fatal.
type TransientFetchError struct {
	Op  string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("transient fetch error in %s: %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var t *TransientFetchError
	return errors.As(err, &t)
}

// InsufficientDataError means the candle window is shorter than the longest
// indicator lookback. Callers treat it as "hold, retry next cycle".
type InsufficientDataError struct {
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient candle data: need %d, got %d", e.Need, e.Got)
}

func IsInsufficientData(err error) bool {
	var t *InsufficientDataError
	return errors.As(err, &t)
}

// ExecutionError marks a failed order placement. Position state is retained
// unchanged so the next cycle can retry.
type ExecutionError struct {
	Side Side
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("order execution failed (%s): %v", e.Side, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ConfigurationError marks an invalid bot configuration. It is the only
// error in the taxonomy that is fatal, and only at creation time.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %s", e.Field, e.Reason)
}

func IsConfiguration(err error) bool {
	var t *ConfigurationError
	return errors.As(err, &t)
}
