package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the four client-facing failure classes. Callers match
// with errors.Is; the HTTP layer maps each class to a status code.
var (
	// ErrValidation covers malformed input: dimension mismatches, missing
	// reference embeddings, empty identifiers.
	ErrValidation = errors.New("validation error")

	// ErrConflict covers duplicate identity registration.
	ErrConflict = errors.New("conflict")

	// ErrNotFound covers lookups of unknown identity IDs.
	ErrNotFound = errors.New("not found")

	// ErrUpstream covers extractor timeouts and failures. Retryable by the
	// caller; the core never retries internally.
	ErrUpstream = errors.New("upstream error")

	// ErrUnsupportedImage is the extractor's rejection of input it cannot
	// decode, distinct from an internal extractor failure.
	ErrUnsupportedImage = fmt.Errorf("unsupported image: %w", ErrValidation)
)

// ValidationError wraps ErrValidation with detail.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ConflictError wraps ErrConflict with the offending identity ID.
func ConflictError(identityID string) error {
	return fmt.Errorf("%w: identity %q already registered", ErrConflict, identityID)
}

// NotFoundError wraps ErrNotFound with the missing identity ID.
func NotFoundError(identityID string) error {
	return fmt.Errorf("%w: identity %q", ErrNotFound, identityID)
}

// UpstreamError wraps ErrUpstream around an extractor failure.
func UpstreamError(err error) error {
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
