package storage

import (
	"context"
	"testing"
)

func TestMigrate_ReachesExpectedVersion(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			store := createTestStorage(t, driver)

			version, err := store.SchemaVersion(context.Background())
			if err != nil {
				t.Fatalf("SchemaVersion() error = %v", err)
			}
			if version != ExpectedSchemaVersion {
				t.Errorf("schema version = %d, want %d", version, ExpectedSchemaVersion)
			}

			for _, table := range []string{"credits", "classification_history", "feedback", "manifests"} {
				var n int
				err := store.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n)
				if err != nil {
					t.Fatalf("failed to inspect schema: %v", err)
				}
				if n != 1 {
					t.Errorf("table %s was not created", table)
				}
			}
		})
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := createTestStorage(t, DriverCGO)
	ctx := context.Background()

	if err := store.SaveCredits(ctx, map[string]float64{"alice": 3}); err != nil {
		t.Fatal(err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	balances, err := store.LoadCredits(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if balances["alice"] != 3 {
		t.Errorf("data lost across re-migration: %v", balances)
	}
}

func TestMigrations_AreOrdered(t *testing.T) {
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d", i, m.Version)
		}
	}
	if migrations[len(migrations)-1].Version != ExpectedSchemaVersion {
		t.Errorf("last migration is not ExpectedSchemaVersion")
	}
}
