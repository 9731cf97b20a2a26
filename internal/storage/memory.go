package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
	"github.com/Veraticus/wastewise/internal/service"
)

// MemoryStore keeps all state in process memory. It backs the live bin
// registry and credit balances, and doubles as a non-durable service.Storage.
type MemoryStore struct {
	bins      map[string]model.Bin
	credits   map[string]float64
	persisted map[string]float64
	manifests map[string]model.Manifest
	history   []model.HistoryEntry
	feedback  []model.Feedback
	mu        sync.RWMutex
}

var (
	_ service.BinStore    = (*MemoryStore)(nil)
	_ service.CreditStore = (*MemoryStore)(nil)
	_ service.Storage     = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bins:      make(map[string]model.Bin),
		credits:   make(map[string]float64),
		persisted: make(map[string]float64),
		manifests: make(map[string]model.Manifest),
	}
}

// NewMemoryStoreWithBins creates a store seeded with bins.
func NewMemoryStoreWithBins(bins []model.Bin) (*MemoryStore, error) {
	s := NewMemoryStore()
	for _, bin := range bins {
		if err := validateBin(bin); err != nil {
			return nil, err
		}
		if _, dup := s.bins[bin.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate bin id %s", ErrInvalidBin, bin.ID)
		}
		s.bins[bin.ID] = bin
	}
	return s, nil
}

// GetBin returns a copy of the bin.
func (s *MemoryStore) GetBin(_ context.Context, binID string) (model.Bin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bin, ok := s.bins[binID]
	if !ok {
		return model.Bin{}, fmt.Errorf("bin %s: %w", binID, common.ErrNotFound)
	}
	return bin, nil
}

// ListBins returns all bins ordered by id.
func (s *MemoryStore) ListBins(_ context.Context) ([]model.Bin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bins := slices.Collect(maps.Values(s.bins))
	slices.SortFunc(bins, func(a, b model.Bin) int { return strings.Compare(a.ID, b.ID) })
	return bins, nil
}

// PutBin inserts or replaces a bin.
func (s *MemoryStore) PutBin(_ context.Context, bin model.Bin) error {
	if err := validateBin(bin); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bins[bin.ID] = bin
	return nil
}

// UpdateBin applies fn to the bin under the store lock. If fn fails the bin is unchanged.
func (s *MemoryStore) UpdateBin(_ context.Context, binID string, fn func(*model.Bin) error) (model.Bin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bin, ok := s.bins[binID]
	if !ok {
		return model.Bin{}, fmt.Errorf("bin %s: %w", binID, common.ErrNotFound)
	}
	if err := fn(&bin); err != nil {
		return model.Bin{}, err
	}
	bin.ID = binID
	s.bins[binID] = bin
	return bin, nil
}

// Balance returns the user's balance, 0 for unknown users.
func (s *MemoryStore) Balance(_ context.Context, userID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credits[userID], nil
}

// UpdateBalance applies fn to the user's balance under the store lock, creating the account if absent.
func (s *MemoryStore) UpdateBalance(_ context.Context, userID string, fn func(float64) (float64, error)) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.credits[userID])
	if err != nil {
		return 0, err
	}
	s.credits[userID] = next
	return next, nil
}

// Snapshot returns a copy of every balance.
func (s *MemoryStore) Snapshot(_ context.Context) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.credits), nil
}

// Replace swaps in a new set of balances.
func (s *MemoryStore) Replace(_ context.Context, balances map[string]float64) error {
	if err := validateBalances(balances); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credits = maps.Clone(balances)
	return nil
}

// LoadCredits returns the last saved ledger.
func (s *MemoryStore) LoadCredits(_ context.Context) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.persisted), nil
}

// SaveCredits records balances as the saved ledger.
func (s *MemoryStore) SaveCredits(_ context.Context, balances map[string]float64) error {
	if err := validateBalances(balances); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = maps.Clone(balances)
	return nil
}

// AppendHistory appends to the history log.
func (s *MemoryStore) AppendHistory(_ context.Context, entry model.HistoryEntry) error {
	if err := validateHistoryEntry(entry); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	return nil
}

// ListHistory returns the most recent limit entries. limit <= 0 returns all.
func (s *MemoryStore) ListHistory(_ context.Context, limit int) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return slices.Clone(entries), nil
}

// AppendFeedback appends to the feedback log.
func (s *MemoryStore) AppendFeedback(_ context.Context, fb model.Feedback) error {
	if err := validateFeedback(fb); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, fb)
	return nil
}

// ListFeedback returns a copy of the feedback log.
func (s *MemoryStore) ListFeedback(_ context.Context) ([]model.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.feedback), nil
}

// SaveManifest stores a manifest. Existing ids are rejected.
func (s *MemoryStore) SaveManifest(_ context.Context, manifest model.Manifest) error {
	if err := validateManifest(manifest); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.manifests[manifest.ID]; exists {
		return fmt.Errorf("%w: manifest %s already exists", ErrInvalidManifest, manifest.ID)
	}
	s.manifests[manifest.ID] = manifest
	return nil
}

// GetManifest returns a stored manifest.
func (s *MemoryStore) GetManifest(_ context.Context, manifestID string) (*model.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.manifests[manifestID]
	if !ok {
		return nil, fmt.Errorf("manifest %s: %w", manifestID, common.ErrNotFound)
	}
	return &m, nil
}

// Migrate is a no-op.
func (s *MemoryStore) Migrate(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
