// Package storage provides the persistence backends for WasteWise: an in-memory
// store for live bin and credit state, a SQLite store and a JSON file store for
// the durable ledgers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/wastewise/internal/model"
)

// Validation errors.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilParameter    = errors.New("parameter cannot be nil")
	ErrInvalidBalance  = errors.New("invalid balance")
	ErrInvalidBin      = errors.New("invalid bin")
	ErrInvalidFeedback = errors.New("invalid feedback")
	ErrInvalidManifest = errors.New("invalid manifest")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateBalances rejects empty user ids and negative or non-finite balances.
func validateBalances(balances map[string]float64) error {
	if balances == nil {
		return fmt.Errorf("%w: balances", ErrNilParameter)
	}
	for user, balance := range balances {
		if strings.TrimSpace(user) == "" {
			return fmt.Errorf("%w: empty user id", ErrInvalidBalance)
		}
		if balance < 0 || math.IsNaN(balance) || math.IsInf(balance, 0) {
			return fmt.Errorf("%w: %s has balance %v", ErrInvalidBalance, user, balance)
		}
	}
	return nil
}

// validateBin validates a bin before it enters the registry.
func validateBin(bin model.Bin) error {
	if strings.TrimSpace(bin.ID) == "" {
		return fmt.Errorf("%w: bin id is required", ErrInvalidBin)
	}
	if bin.CapacityKg <= 0 {
		return fmt.Errorf("%w: %s capacity must be positive", ErrInvalidBin, bin.ID)
	}
	if bin.FillLevelKg < 0 {
		return fmt.Errorf("%w: %s fill level cannot be negative", ErrInvalidBin, bin.ID)
	}
	return nil
}

// validateHistoryEntry validates a classification history entry.
func validateHistoryEntry(entry model.HistoryEntry) error {
	if entry.Timestamp.IsZero() {
		return fmt.Errorf("%w: history timestamp", ErrNilParameter)
	}
	return validateString(entry.BinID, "bin_id")
}

// validateFeedback validates one collector feedback entry.
func validateFeedback(fb model.Feedback) error {
	if strings.TrimSpace(fb.TargetID) == "" {
		return fmt.Errorf("%w: target id is required", ErrInvalidFeedback)
	}
	switch fb.Kind {
	case model.FeedbackKindBin, model.FeedbackKindManifest:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidFeedback, fb.Kind)
	}
	switch fb.Status {
	case model.FeedbackValid, model.FeedbackContaminated:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidFeedback, fb.Status)
	}
	return nil
}

// validateManifest validates a manifest before it is stored.
func validateManifest(m model.Manifest) error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: manifest id is required", ErrInvalidManifest)
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("%w: manifest timestamp is required", ErrInvalidManifest)
	}
	return nil
}
