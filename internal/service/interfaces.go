// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/wastewise/internal/model"
)

// BinStore holds the live bin registry. UpdateBin runs fn under the store
// lock so read-modify-write of a fill level is atomic.
type BinStore interface {
	GetBin(ctx context.Context, binID string) (model.Bin, error)
	ListBins(ctx context.Context) ([]model.Bin, error)
	PutBin(ctx context.Context, bin model.Bin) error
	UpdateBin(ctx context.Context, binID string, fn func(*model.Bin) error) (model.Bin, error)
}

// CreditStore holds the in-memory credit balances.
type CreditStore interface {
	Balance(ctx context.Context, userID string) (float64, error)
	UpdateBalance(ctx context.Context, userID string, fn func(balance float64) (float64, error)) (float64, error)
	Snapshot(ctx context.Context) (map[string]float64, error)
	Replace(ctx context.Context, balances map[string]float64) error
}

// CreditPersister durably stores the full credit ledger.
type CreditPersister interface {
	LoadCredits(ctx context.Context) (map[string]float64, error)
	SaveCredits(ctx context.Context, balances map[string]float64) error
}

// HistoryStore appends to the classification history log.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry model.HistoryEntry) error
	ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error)
}

// FeedbackStore appends to the collector feedback log.
type FeedbackStore interface {
	AppendFeedback(ctx context.Context, fb model.Feedback) error
	ListFeedback(ctx context.Context) ([]model.Feedback, error)
}

// ManifestStore keeps issued manifests so feedback can reference them.
type ManifestStore interface {
	SaveManifest(ctx context.Context, manifest model.Manifest) error
	GetManifest(ctx context.Context, manifestID string) (*model.Manifest, error)
}

// Storage is a durable backend. Both the SQLite and the JSON file backends implement it.
type Storage interface {
	CreditPersister
	HistoryStore
	FeedbackStore
	ManifestStore

	Migrate(ctx context.Context) error
	Close() error
}
