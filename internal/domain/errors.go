package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrConflict              = errors.New("conflict")
	ErrIdempotencyRequired   = errors.New("idempotency key required")
	ErrIdempotencyConflict   = errors.New("idempotency conflict")
	ErrUnsupportedEventType  = errors.New("unsupported event type")
	ErrUnsupportedEventClass = errors.New("unsupported event class")
	ErrInvalidEnvelope       = errors.New("invalid envelope")

	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrNoCommissionRule   = errors.New("no commission rule resolves")
	ErrAllocationClaimed  = errors.New("allocation already claimed by a payout")
	ErrReconciliation     = errors.New("reconciliation violation")
	ErrVersionConflict    = errors.New("settlement version conflict")
	ErrRetriesExhausted   = errors.New("retries exhausted")
	ErrStateConflict      = errors.New("state conflict")
	ErrProviderReference  = errors.New("provider transaction reference required")
)

// StateConflictError identifies an operation attempted against an entity
// whose current status does not permit it. It unwraps to ErrStateConflict
// so callers can match the whole class with errors.Is.
type StateConflictError struct {
	Entity   string
	Current  string
	Required string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s is %s, requires %s", e.Entity, e.Current, e.Required)
}

func (e *StateConflictError) Unwrap() error { return ErrStateConflict }

func stateConflict(entity, current, required string) error {
	return &StateConflictError{Entity: entity, Current: current, Required: required}
}

// ProviderError captures a failed external gateway call with the
// provider-supplied reference and message. It feeds the Failed state with
// retry eligibility rather than being swallowed.
type ProviderError struct {
	Reference string
	Message   string
}

func (e *ProviderError) Error() string {
	if e.Reference == "" {
		return fmt.Sprintf("provider failure: %s", e.Message)
	}
	return fmt.Sprintf("provider failure (%s): %s", e.Reference, e.Message)
}
