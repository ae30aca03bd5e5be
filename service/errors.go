package service

import (
	"errors"
)

// Business failure kinds. Callers distinguish them with errors.Is and map
// them to their own protocol's codes.
var (
	// ErrNotFound means the referenced reward or account does not exist or
	// is inactive. Expected outcome, not retried.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance means a debit would drive the balance below
	// zero. Expected outcome, not retried.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOutOfStock means the reward has no remaining stock. Expected
	// outcome, not retried.
	ErrOutOfStock = errors.New("out of stock")

	// ErrConflict means transient contention; safe for the caller to retry
	// with backoff. Redemption retries it internally a bounded number of
	// times before surfacing it.
	ErrConflict = errors.New("conflict")

	// ErrDuplicateRequest means an idempotency key was reused with a
	// different payload. A misuse signal; never retried.
	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrInvariantViolation means a balance or stock invariant would break
	// outside the normal failure paths. Indicates a bug or data corruption;
	// always surfaced, never masked.
	ErrInvariantViolation = errors.New("invariant violation")
)
