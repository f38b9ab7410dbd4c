package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrEmbeddingFailure  = errors.New("embedding failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrStoreCorrupt      = errors.New("store corrupt")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrEmptyStore        = errors.New("empty store")
	ErrDegenerateVector  = errors.New("degenerate vector")
	ErrResumeMismatch    = errors.New("resume mismatch")
)

// EmbeddingError is returned once an embedding call has failed for good,
// either because retries ran out or because the cause was not retriable.
type EmbeddingError struct {
	Attempts int
	Cause    error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failure after %d attempt(s): %v", e.Attempts, e.Cause)
}

// Unwrap exposes both ErrEmbeddingFailure and the provider error.
func (e *EmbeddingError) Unwrap() []error {
	return []error{ErrEmbeddingFailure, e.Cause}
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
