package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTranscriptionUnavailable is returned when neither the cloud engine
	// nor the local recognizer produced a transcript.
	ErrTranscriptionUnavailable = errors.New("transcription unavailable")

	// ErrTurnInFlight is returned when a turn is submitted while another is
	// still streaming.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrUnsupportedControl is returned by playback controls the active
	// voice cannot honor.
	ErrUnsupportedControl = errors.New("playback control not supported")

	// ErrNotConfigured is returned by providers missing credentials.
	ErrNotConfigured = errors.New("provider not configured")
)

// ValidationError reports input rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ProviderError wraps a failed call to a third-party service.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError creates a ProviderError.
func NewProviderError(provider string, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, StatusCode: status, Err: err}
}

// TimeoutError reports an enrichment stage that ran out of budget.
type TimeoutError struct {
	Stage string
}

func (e *TimeoutError) Error() string {
	return e.Stage + ": budget exceeded"
}

// StateError reports an event that no longer matches the active turn.
type StateError struct {
	Expected string
	Got      string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("stale event for %q, active turn is %q", e.Got, e.Expected)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsProvider reports whether err is a ProviderError.
func IsProvider(err error) bool {
	var p *ProviderError
	return errors.As(err, &p)
}
