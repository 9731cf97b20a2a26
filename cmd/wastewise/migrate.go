package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/wastewise/internal/config"
	"github.com/Veraticus/wastewise/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Only the sqlite backend has a schema; the file backend just creates its directory.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	if cfg.Storage.Backend != config.BackendSQLite {
		if status {
			slog.Info("No schema to report", "backend", cfg.Storage.Backend)
			return nil
		}
		store, _, err := openStorage(cmd.Context(), cfg, slog.Default())
		if err != nil {
			return err
		}
		slog.Info("✅ Storage ready", "backend", cfg.Storage.Backend, "dir", cfg.Storage.Dir)
		return store.Close()
	}

	store, err := storage.NewSQLiteStorage(cfg.Database.Path, cfg.Database.Driver, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if status {
		current, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		slog.Info("📊 Database Migration Status",
			"database", cfg.Database.Path,
			"driver", cfg.Database.Driver,
			"current_version", current,
			"latest_version", storage.ExpectedSchemaVersion,
			"pending", storage.ExpectedSchemaVersion-current)
		return nil
	}

	slog.Info("🗄️  Running database migrations...", "database", cfg.Database.Path, "driver", cfg.Database.Driver)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	slog.Info("✅ Database migrations completed successfully!")
	return nil
}
