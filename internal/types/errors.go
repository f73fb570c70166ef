package types

import "errors"

var (
	// ErrNotFound is returned when a referenced alert, suggestion,
	// notification, person or tenant does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input to a transition or
	// dispatch call. Wrap it with context: fmt.Errorf("%w: reviewer required", ErrValidation).
	ErrValidation = errors.New("validation error")

	// ErrUpstreamUnavailable marks a failed or timed-out LLM call. It is
	// recovered locally via the deterministic fallback and never surfaced
	// to API callers.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
