package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
	"github.com/Veraticus/wastewise/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver (cgo)
	_ "modernc.org/sqlite"          // SQLite driver (pure Go)
)

// Supported database/sql driver names.
const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

const timeLayout = time.RFC3339Nano

// SQLiteStorage implements service.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
	driver string
}

var _ service.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens the database at dbPath with the given driver
// (DriverCGO or DriverPureGo; empty selects DriverCGO).
func NewSQLiteStorage(dbPath, driver string, logger *slog.Logger) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	dsn, driver, err := dataSourceName(dbPath, driver)
	if err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
		driver: driver,
		logger: logger,
	}, nil
}

func dataSourceName(dbPath, driver string) (string, string, error) {
	switch driver {
	case DriverCGO, "":
		return dbPath + "?_journal_mode=WAL&_busy_timeout=5000", DriverCGO, nil
	case DriverPureGo:
		return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", DriverPureGo, nil
	default:
		return "", "", fmt.Errorf("%w: unsupported database driver %q", common.ErrInvalidConfig, driver)
	}
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Driver returns the database/sql driver name in use.
func (s *SQLiteStorage) Driver() string {
	return s.driver
}

// NewCheckpointManager creates a checkpoint manager for this database.
func (s *SQLiteStorage) NewCheckpointManager() (*CheckpointManager, error) {
	return NewCheckpointManager(s.db, s.dbPath, s.driver)
}

// LoadCredits returns every persisted balance.
func (s *SQLiteStorage) LoadCredits(ctx context.Context) (map[string]float64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT user_id, balance FROM credits`)
	if err != nil {
		return nil, fmt.Errorf("failed to query credits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	balances := make(map[string]float64)
	for rows.Next() {
		var user string
		var balance float64
		if err := rows.Scan(&user, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan credit row: %w", err)
		}
		balances[user] = balance
	}
	return balances, rows.Err()
}

// SaveCredits replaces the stored ledger with balances in one transaction.
func (s *SQLiteStorage) SaveCredits(ctx context.Context, balances map[string]float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBalances(balances); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credits`); err != nil {
		return fmt.Errorf("failed to clear credits: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO credits (user_id, balance, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(timeLayout)
	for user, balance := range balances {
		if _, err := stmt.ExecContext(ctx, user, balance, now); err != nil {
			return fmt.Errorf("failed to save credits for %s: %w", user, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credits: %w", err)
	}
	return nil
}

// AppendHistory records one processed batch in the classification history log.
func (s *SQLiteStorage) AppendHistory(ctx context.Context, entry model.HistoryEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHistoryEntry(entry); err != nil {
		return err
	}

	items, err := json.Marshal(entry.Items)
	if err != nil {
		return fmt.Errorf("failed to encode history items: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO classification_history (timestamp, bin_id, items) VALUES (?, ?, ?)`,
		entry.Timestamp.UTC().Format(timeLayout), entry.BinID, string(items))
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// ListHistory returns the most recent limit entries in insertion order. limit <= 0 returns all.
func (s *SQLiteStorage) ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, bin_id, items FROM (
			SELECT id, timestamp, bin_id, items FROM classification_history ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.HistoryEntry
	for rows.Next() {
		var ts, binID, items string
		if err := rows.Scan(&ts, &binID, &items); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entry := model.HistoryEntry{BinID: binID}
		if entry.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("%w: history timestamp %q", common.ErrDatabaseCorrupted, ts)
		}
		if err := json.Unmarshal([]byte(items), &entry.Items); err != nil {
			return nil, fmt.Errorf("%w: history items: %w", common.ErrDatabaseCorrupted, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// AppendFeedback records one collector signal.
func (s *SQLiteStorage) AppendFeedback(ctx context.Context, fb model.Feedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFeedback(fb); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (timestamp, recorded_at, kind, target_id, status) VALUES (?, ?, ?, ?, ?)`,
		fb.Timestamp.UTC().Format(timeLayout), nullTime(fb.RecordedAt), string(fb.Kind), fb.TargetID, string(fb.Status))
	if err != nil {
		return fmt.Errorf("failed to append feedback: %w", err)
	}
	return nil
}

// ListFeedback returns the feedback log in insertion order.
func (s *SQLiteStorage) ListFeedback(ctx context.Context) ([]model.Feedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT timestamp, recorded_at, kind, target_id, status FROM feedback ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var log []model.Feedback
	for rows.Next() {
		var ts, kind, target, status string
		var recorded sql.NullString
		if err := rows.Scan(&ts, &recorded, &kind, &target, &status); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		fb := model.Feedback{
			Kind:     model.FeedbackKind(kind),
			TargetID: target,
			Status:   model.FeedbackStatus(status),
		}
		if fb.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("%w: feedback timestamp %q", common.ErrDatabaseCorrupted, ts)
		}
		if recorded.Valid {
			if fb.RecordedAt, err = time.Parse(timeLayout, recorded.String); err != nil {
				return nil, fmt.Errorf("%w: feedback recorded_at %q", common.ErrDatabaseCorrupted, recorded.String)
			}
		}
		log = append(log, fb)
	}
	return log, rows.Err()
}

// SaveManifest stores an issued manifest. Manifests are immutable; saving an existing id fails.
func (s *SQLiteStorage) SaveManifest(ctx context.Context, manifest model.Manifest) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateManifest(manifest); err != nil {
		return err
	}

	body, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO manifests (manifest_id, timestamp, total_weight_kg, body) VALUES (?, ?, ?, ?)`,
		manifest.ID, manifest.Timestamp.UTC().Format(timeLayout), manifest.TotalWeightKg, string(body))
	if err != nil {
		return fmt.Errorf("failed to save manifest %s: %w", manifest.ID, err)
	}
	return nil
}

// GetManifest loads a manifest by id.
func (s *SQLiteStorage) GetManifest(ctx context.Context, manifestID string) (*model.Manifest, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(manifestID, "manifestID"); err != nil {
		return nil, err
	}

	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM manifests WHERE manifest_id = ?`, manifestID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("manifest %s: %w", manifestID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}

	var manifest model.Manifest
	if err := json.Unmarshal([]byte(body), &manifest); err != nil {
		return nil, fmt.Errorf("%w: manifest %s: %w", common.ErrDatabaseCorrupted, manifestID, err)
	}
	return &manifest, nil
}

// nullTime stores the zero time as NULL.
func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}
