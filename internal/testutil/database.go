// Package testutil provides helpers for tests that need a real, migrated database.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/wastewise/internal/model"
	"github.com/Veraticus/wastewise/internal/storage"
)

// TestDBOptions configures SetupTestDBWithOptions.
type TestDBOptions struct {
	CustomSetup func(context.Context, *storage.SQLiteStorage) error
	Credits     map[string]float64
	Driver      string
	Feedback    []model.Feedback
	// OnDisk places the database in t.TempDir() instead of memory; checkpoints need it.
	OnDisk         bool
	SkipMigrations bool
}

// SetupTestDB creates a migrated in-memory database on the cgo driver.
// It is closed automatically when the test ends.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *storage.SQLiteStorage {
	t.Helper()

	driver := opts.Driver
	if driver == "" {
		driver = storage.DriverCGO
	}
	path := ":memory:"
	if opts.OnDisk {
		path = filepath.Join(t.TempDir(), "wastewise.db")
	}

	store, err := storage.NewSQLiteStorage(path, driver, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if len(opts.Credits) > 0 {
		if err := store.SaveCredits(ctx, opts.Credits); err != nil {
			t.Fatalf("failed to seed credits: %v", err)
		}
	}
	for _, fb := range opts.Feedback {
		if err := store.AppendFeedback(ctx, fb); err != nil {
			t.Fatalf("failed to seed feedback for %q: %v", fb.TargetID, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return store
}
