package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
	"github.com/Veraticus/wastewise/internal/service"
)

// File names used by FileStore.
const (
	CreditsFile   = "credits_db.json"
	HistoryFile   = "classification_db.json"
	FeedbackFile  = "feedback_db.json"
	ManifestsFile = "manifests_db.json"
)

// FileStore implements service.Storage with JSON files in a directory.
// Every update rewrites the whole file through a temp file and rename.
type FileStore struct {
	logger *slog.Logger
	dir    string
	mu     sync.Mutex
}

var _ service.Storage = (*FileStore)(nil)

// NewFileStore creates a file store rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := validateString(dir, "dir"); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the directory holding the JSON files.
func (f *FileStore) Dir() string {
	return f.dir
}

// Migrate creates the storage directory.
func (f *FileStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0750); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	return nil
}

// Close is a no-op; files are closed after every write.
func (f *FileStore) Close() error {
	return nil
}

// LoadCredits reads credits_db.json. A missing file is an empty ledger.
func (f *FileStore) LoadCredits(ctx context.Context) (map[string]float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	balances := make(map[string]float64)
	if err := f.readJSON(CreditsFile, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// SaveCredits rewrites credits_db.json with balances.
func (f *FileStore) SaveCredits(ctx context.Context, balances map[string]float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBalances(balances); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writeJSON(CreditsFile, balances)
}

// AppendHistory appends to classification_db.json.
func (f *FileStore) AppendHistory(ctx context.Context, entry model.HistoryEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHistoryEntry(entry); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var entries []model.HistoryEntry
	if err := f.readJSON(HistoryFile, &entries); err != nil {
		return err
	}
	return f.writeJSON(HistoryFile, append(entries, entry))
}

// ListHistory returns the most recent limit entries. limit <= 0 returns all.
func (f *FileStore) ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var entries []model.HistoryEntry
	if err := f.readJSON(HistoryFile, &entries); err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// AppendFeedback appends to feedback_db.json.
func (f *FileStore) AppendFeedback(ctx context.Context, fb model.Feedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFeedback(fb); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var log []model.Feedback
	if err := f.readJSON(FeedbackFile, &log); err != nil {
		return err
	}
	return f.writeJSON(FeedbackFile, append(log, fb))
}

// ListFeedback returns the feedback log in insertion order.
func (f *FileStore) ListFeedback(ctx context.Context) ([]model.Feedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var log []model.Feedback
	if err := f.readJSON(FeedbackFile, &log); err != nil {
		return nil, err
	}
	return log, nil
}

// SaveManifest adds a manifest to manifests_db.json. Existing ids are rejected.
func (f *FileStore) SaveManifest(ctx context.Context, manifest model.Manifest) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateManifest(manifest); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	manifests := make(map[string]model.Manifest)
	if err := f.readJSON(ManifestsFile, &manifests); err != nil {
		return err
	}
	if _, exists := manifests[manifest.ID]; exists {
		return fmt.Errorf("%w: manifest %s already exists", ErrInvalidManifest, manifest.ID)
	}
	manifests[manifest.ID] = manifest
	return f.writeJSON(ManifestsFile, manifests)
}

// GetManifest loads a manifest by id.
func (f *FileStore) GetManifest(ctx context.Context, manifestID string) (*model.Manifest, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	manifests := make(map[string]model.Manifest)
	if err := f.readJSON(ManifestsFile, &manifests); err != nil {
		return nil, err
	}
	m, ok := manifests[manifestID]
	if !ok {
		return nil, fmt.Errorf("manifest %s: %w", manifestID, common.ErrNotFound)
	}
	return &m, nil
}

// readJSON decodes name into v. A missing file leaves v untouched.
func (f *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(f.dir, name)) // #nosec G304 -- fixed file names under the configured dir
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrDatabaseCorrupted, name, err)
	}
	return nil
}

// writeJSON atomically replaces name with the JSON encoding of v.
func (f *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return writeFileAtomic(filepath.Join(f.dir, name), data)
}

// writeFileAtomic writes data to a temp file in the target directory and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
