package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
)

var drivers = []string{DriverCGO, DriverPureGo}

// createTestStorage opens a migrated database in a temp dir.
func createTestStorage(t *testing.T, driver string) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath, driver, nil)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return store
}

func testHistoryEntry(binID string, ts time.Time, items ...string) model.HistoryEntry {
	entry := model.HistoryEntry{Timestamp: ts, BinID: binID}
	for _, item := range items {
		entry.Items = append(entry.Items, model.ClassificationRecord{
			Item: item, Category: model.CategoryPET, Stream: model.StreamDry,
			Recyclability: model.RecyclabilityLow, Note: model.NoteDryRecyclables, WeightKg: 0.05,
		})
	}
	return entry
}

func TestNewSQLiteStorage_UnknownDriver(t *testing.T) {
	_, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "x.db"), "postgres", nil)
	if !errors.Is(err, common.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSQLiteStorage_Credits(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			store := createTestStorage(t, driver)
			ctx := context.Background()

			loaded, err := store.LoadCredits(ctx)
			if err != nil {
				t.Fatalf("LoadCredits() error = %v", err)
			}
			if len(loaded) != 0 {
				t.Errorf("expected empty ledger, got %v", loaded)
			}

			if err := store.SaveCredits(ctx, map[string]float64{"alice": 5, "bob": 2.5}); err != nil {
				t.Fatalf("SaveCredits() error = %v", err)
			}
			// A second save fully replaces the first.
			if err := store.SaveCredits(ctx, map[string]float64{"alice": 8}); err != nil {
				t.Fatalf("SaveCredits() error = %v", err)
			}

			loaded, err = store.LoadCredits(ctx)
			if err != nil {
				t.Fatalf("LoadCredits() error = %v", err)
			}
			if len(loaded) != 1 || loaded["alice"] != 8 {
				t.Errorf("LoadCredits() = %v, want map[alice:8]", loaded)
			}

			if err := store.SaveCredits(ctx, map[string]float64{"eve": -1}); !errors.Is(err, ErrInvalidBalance) {
				t.Errorf("expected ErrInvalidBalance, got %v", err)
			}
		})
	}
}

func TestSQLiteStorage_History(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			store := createTestStorage(t, driver)
			ctx := context.Background()
			base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

			for i, bin := range []string{"bin-A", "bin-B", "bin-C"} {
				if err := store.AppendHistory(ctx, testHistoryEntry(bin, base.Add(time.Duration(i)*time.Minute), "milk jug")); err != nil {
					t.Fatalf("AppendHistory() error = %v", err)
				}
			}

			all, err := store.ListHistory(ctx, 0)
			if err != nil {
				t.Fatalf("ListHistory() error = %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 entries, got %d", len(all))
			}
			if all[0].BinID != "bin-A" || !all[0].Timestamp.Equal(base) {
				t.Errorf("first entry = %+v", all[0])
			}
			if len(all[0].Items) != 1 || all[0].Items[0].Item != "milk jug" {
				t.Errorf("items did not round-trip: %+v", all[0].Items)
			}

			recent, err := store.ListHistory(ctx, 2)
			if err != nil {
				t.Fatalf("ListHistory() error = %v", err)
			}
			if len(recent) != 2 || recent[0].BinID != "bin-B" || recent[1].BinID != "bin-C" {
				t.Errorf("ListHistory(2) = %+v", recent)
			}
		})
	}
}

func TestSQLiteStorage_Feedback(t *testing.T) {
	store := createTestStorage(t, DriverCGO)
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	entries := []model.Feedback{
		{Timestamp: ts, RecordedAt: ts.Add(90 * time.Second), Kind: model.FeedbackKindBin, TargetID: "bin-A", Status: model.FeedbackValid},
		{Timestamp: ts, Kind: model.FeedbackKindManifest, TargetID: "m-1", Status: model.FeedbackContaminated},
	}
	for _, fb := range entries {
		if err := store.AppendFeedback(ctx, fb); err != nil {
			t.Fatalf("AppendFeedback() error = %v", err)
		}
	}
	if err := store.AppendFeedback(ctx, model.Feedback{Kind: "truck", TargetID: "x", Status: model.FeedbackValid}); err == nil {
		t.Error("expected invalid feedback to be rejected")
	}

	log, err := store.ListFeedback(ctx)
	if err != nil {
		t.Fatalf("ListFeedback() error = %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(log))
	}
	for i := range entries {
		if log[i] != entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, log[i], entries[i])
		}
	}
}

func TestSQLiteStorage_Manifests(t *testing.T) {
	store := createTestStorage(t, DriverPureGo)
	ctx := context.Background()

	m := model.Manifest{
		ID:            "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Timestamp:     time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		Location:      &model.Location{Lat: 40.71, Lon: -74.00},
		TotalItems:    1,
		TotalBags:     1,
		TotalWeightKg: 0.5,
	}
	if err := store.SaveManifest(ctx, m); err != nil {
		t.Fatalf("SaveManifest() error = %v", err)
	}
	if err := store.SaveManifest(ctx, m); err == nil {
		t.Error("expected duplicate manifest id to fail")
	}

	got, err := store.GetManifest(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetManifest() error = %v", err)
	}
	if got.TotalWeightKg != 0.5 || got.Location == nil || got.Location.Lat != 40.71 {
		t.Errorf("GetManifest() = %+v", got)
	}

	if _, err := store.GetManifest(ctx, "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(dbPath, DriverCGO, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveCredits(ctx, map[string]float64{"alice": 8}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteStorage(dbPath, DriverCGO, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = reopened.Close() }()
	if err := reopened.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	balances, err := reopened.LoadCredits(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if balances["alice"] != 8 {
		t.Errorf("balance after reopen = %v, want 8", balances["alice"])
	}
}

func TestSQLiteStorage_FeedbackWithoutRecordedAt(t *testing.T) {
	store := createTestStorage(t, DriverPureGo)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx,
		`INSERT INTO feedback (timestamp, kind, target_id, status) VALUES (?, 'bin', 'bin-A', 'Valid')`,
		"2025-03-01T09:30:00Z")
	if err != nil {
		t.Fatalf("failed to insert legacy row: %v", err)
	}

	log, err := store.ListFeedback(ctx)
	if err != nil {
		t.Fatalf("ListFeedback() error = %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(log))
	}
	if !log[0].RecordedAt.IsZero() {
		t.Errorf("RecordedAt = %v, want zero", log[0].RecordedAt)
	}
	if !log[0].ReplayTime().Equal(log[0].Timestamp) {
		t.Errorf("ReplayTime() = %v, want verdict time %v", log[0].ReplayTime(), log[0].Timestamp)
	}
}
