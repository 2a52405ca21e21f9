package entities

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrJobNotFound    = errors.New("transcription job not found")
	ErrResultNotReady = errors.New("transcription result not ready")
)

// ProviderError is a transient failure talking to an external provider
// (network, availability, unknown provider job id, timeout). Retry-safe.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err as a ProviderError unless it already is one
func NewProviderError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Op: op, Err: err}
}

// IsProviderError reports whether err is, or wraps, a ProviderError
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// ResultParseError means a completed job's raw payload is malformed
type ResultParseError struct {
	Reason string
	Err    error
}

func (e *ResultParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse provider result: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse provider result: %s", e.Reason)
}

func (e *ResultParseError) Unwrap() error {
	return e.Err
}

// ValidationError is returned for missing or invalid caller input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
