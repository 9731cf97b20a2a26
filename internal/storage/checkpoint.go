package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// CheckpointManager snapshots and restores the ledger database.
type CheckpointManager struct {
	db             *sql.DB
	dbPath         string
	driver         string
	checkpointsDir string
}

// CheckpointInfo describes a stored checkpoint.
type CheckpointInfo struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// Checkpoint errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
	ErrInvalidCheckpointID = errors.New("invalid checkpoint id: cannot contain path separators")
)

const maxAutoCheckpoints = 5

// Explicit queries per table; table names are never interpolated.
var rowCountQueries = map[string]string{
	"credits":                "SELECT COUNT(*) FROM credits",
	"classification_history": "SELECT COUNT(*) FROM classification_history",
	"feedback":               "SELECT COUNT(*) FROM feedback",
	"manifests":              "SELECT COUNT(*) FROM manifests",
}

// NewCheckpointManager creates a manager storing checkpoints next to dbPath.
func NewCheckpointManager(db *sql.DB, dbPath, driver string) (*CheckpointManager, error) {
	if dbPath == ":memory:" {
		return nil, errors.New("checkpoints need a file-backed database")
	}
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	dir := filepath.Join(filepath.Dir(abs), "checkpoints")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &CheckpointManager{db: db, dbPath: abs, driver: driver, checkpointsDir: dir}, nil
}

func validateCheckpointID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\'";`) || strings.Contains(id, "..") {
		return ErrInvalidCheckpointID
	}
	return nil
}

func (cm *CheckpointManager) paths(id string) (string, string) {
	return filepath.Join(cm.checkpointsDir, id+".db"), filepath.Join(cm.checkpointsDir, id+".meta.json")
}

// Create snapshots the database with VACUUM INTO. An empty tag generates one from the clock.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointInfo, error) {
	if tag == "" {
		tag = "checkpoint-" + time.Now().Format("2006-01-02-150405")
	}
	if err := validateCheckpointID(tag); err != nil {
		return nil, err
	}

	dbFile, metaFile := cm.paths(tag)
	if _, err := os.Stat(dbFile); err == nil {
		return nil, ErrCheckpointExists
	}

	var schemaVersion int
	if err := cm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	counts := make(map[string]int, len(rowCountQueries))
	for table, query := range rowCountQueries {
		var n int
		if err := cm.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			n = 0
		}
		counts[table] = n
	}

	// #nosec G201 -- tag is validated to exclude quotes and separators
	if _, err := cm.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dbFile)); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	stat, err := os.Stat(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}

	info := &CheckpointInfo{
		ID:            tag,
		CreatedAt:     time.Now(),
		Description:   description,
		FileSize:      stat.Size(),
		RowCounts:     counts,
		SchemaVersion: schemaVersion,
	}
	if err := cm.saveInfo(metaFile, info); err != nil {
		if rmErr := os.Remove(dbFile); rmErr != nil {
			slog.Error("failed to remove checkpoint after metadata failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}
	return info, nil
}

// AutoCheckpoint creates a checkpoint tagged auto-<prefix>-<time> and prunes old automatic ones.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, prefix string) error {
	tag := fmt.Sprintf("auto-%s-%d", prefix, time.Now().UnixNano())
	info, err := cm.Create(ctx, tag, "Automatic checkpoint before "+prefix)
	if err != nil {
		return fmt.Errorf("failed to create auto-checkpoint: %w", err)
	}

	info.IsAuto = true
	_, metaFile := cm.paths(tag)
	if err := cm.saveInfo(metaFile, info); err != nil {
		slog.Error("failed to mark checkpoint as automatic", "checkpoint", tag, "error", err)
	}

	list, err := cm.List(ctx)
	if err != nil {
		slog.Warn("failed to list checkpoints for cleanup", "error", err)
		return nil
	}
	autoSeen := 0
	for _, cp := range list {
		if !cp.IsAuto {
			continue
		}
		autoSeen++
		if autoSeen > maxAutoCheckpoints {
			if err := cm.Delete(ctx, cp.ID); err != nil {
				slog.Debug("failed to delete old auto-checkpoint", "checkpoint", cp.ID, "error", err)
			}
		}
	}
	return nil
}

// List returns every checkpoint, newest first.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.checkpointsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	var list []CheckpointInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		info, err := cm.loadInfo(filepath.Join(cm.checkpointsDir, entry.Name()))
		if err != nil {
			continue
		}
		list = append(list, *info)
	}

	slices.SortFunc(list, func(a, b CheckpointInfo) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return list, nil
}

// Restore replaces the live database with a checkpoint. The manager's database
// handle is closed; callers must reopen storage afterwards.
func (cm *CheckpointManager) Restore(_ context.Context, id string) error {
	if err := validateCheckpointID(id); err != nil {
		return err
	}
	dbFile, metaFile := cm.paths(id)

	if _, err := os.Stat(dbFile); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}
	if _, err := cm.loadInfo(metaFile); err != nil {
		return fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}
	if err := cm.verifyIntegrity(dbFile); err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointCorrupted, err)
	}

	if err := cm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if err := copyFileAtomic(dbFile, cm.dbPath); err != nil {
		return fmt.Errorf("failed to restore checkpoint: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(cm.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove stale journal file", "path", cm.dbPath+suffix, "error", err)
		}
	}
	return nil
}

// Delete removes a checkpoint and its metadata.
func (cm *CheckpointManager) Delete(_ context.Context, id string) error {
	if err := validateCheckpointID(id); err != nil {
		return err
	}
	dbFile, metaFile := cm.paths(id)

	if err := os.Remove(dbFile); err != nil {
		if os.IsNotExist(err) {
			return ErrCheckpointNotFound
		}
		return fmt.Errorf("failed to remove checkpoint file: %w", err)
	}
	if err := os.Remove(metaFile); err != nil {
		slog.Debug("failed to remove metadata file", "path", metaFile, "error", err)
	}
	return nil
}

func (cm *CheckpointManager) saveInfo(path string, info *CheckpointInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func (cm *CheckpointManager) loadInfo(path string) (*CheckpointInfo, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is built from a validated id
	if err != nil {
		return nil, err
	}
	var info CheckpointInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (cm *CheckpointManager) verifyIntegrity(path string) error {
	db, err := sql.Open(cm.driver, path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func copyFileAtomic(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- src is a checkpoint path built from a validated id
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	return writeFileAtomic(dst, data)
}
