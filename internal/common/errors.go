// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound          = errors.New("not found")
	ErrDatabaseCorrupted = errors.New("database corrupted")

	// Batch errors. These abort a batch before any state changes.
	ErrInvalidBin   = errors.New("invalid bin_id provided")
	ErrNoTextFound  = errors.New("no text found in file")
	ErrNoItemsFound = errors.New("no valid items found after cleaning")

	// ErrOracleFailure covers every way the classification oracle can fail.
	// It never reaches batch callers; the resolver absorbs it per item.
	ErrOracleFailure = errors.New("classification oracle failure")

	// Ledger errors.
	ErrRejectedWasteType = errors.New("incorrect waste type: only 'Recyclable Plastics' are accepted for credits")
	ErrInvalidWeight     = errors.New("weight must be a non-negative number")

	// Routing errors.
	ErrNoBinsEligible  = errors.New("no bins eligible for pickup")
	ErrRouteInfeasible = errors.New("route optimization found no feasible tour")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsBatchRejection reports whether err aborted a batch before any side effects.
func IsBatchRejection(err error) bool {
	return errors.Is(err, ErrInvalidBin) ||
		errors.Is(err, ErrNoTextFound) ||
		errors.Is(err, ErrNoItemsFound)
}
