package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/wastewise/internal/config"
	"github.com/Veraticus/wastewise/internal/engine"
	"github.com/Veraticus/wastewise/internal/extract"
	"github.com/Veraticus/wastewise/internal/knowledge"
	"github.com/Veraticus/wastewise/internal/ledger"
	"github.com/Veraticus/wastewise/internal/llm"
	"github.com/Veraticus/wastewise/internal/route"
	"github.com/Veraticus/wastewise/internal/service"
	"github.com/Veraticus/wastewise/internal/storage"
)

// app is the fully wired runtime shared by every command.
type app struct {
	cfg       *config.Config
	engine    *engine.Engine
	store     service.Storage
	sqlite    *storage.SQLiteStorage
	knowledge *knowledge.Store
	watcher   *knowledge.Watcher
	oracle    *llm.Oracle
	logger    *slog.Logger
}

// loadApp reads the validated configuration and wires the app for cmd.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg, slog.Default())
}

// openStorage opens and migrates the configured durable backend. The second
// return value is non-nil only for the sqlite backend.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Storage, *storage.SQLiteStorage, error) {
	var store service.Storage
	var sqlite *storage.SQLiteStorage

	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		s, err := storage.NewSQLiteStorage(cfg.Database.Path, cfg.Database.Driver, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		store, sqlite = s, s
	case config.BackendFile:
		s, err := storage.NewFileStore(cfg.Storage.Dir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file store: %w", err)
		}
		store = s
	default:
		store = storage.NewMemoryStore()
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, sqlite, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	var err error
	if a.store, a.sqlite, err = openStorage(ctx, cfg, logger); err != nil {
		return err
	}

	if a.knowledge, err = knowledge.Open(cfg.Knowledge.Path, logger); err != nil {
		return fmt.Errorf("failed to load knowledge graph: %w", err)
	}
	if cfg.Knowledge.Watch {
		if a.watcher, err = knowledge.NewWatcher(a.knowledge); err != nil {
			return err
		}
		go a.watcher.Run(ctx)
	}

	var oracle engine.Oracle
	if cfg.Oracle.Enabled {
		if a.oracle, err = llm.NewOracle(cfg.LLMConfig(), logger); err != nil {
			return fmt.Errorf("failed to create classification oracle: %w", err)
		}
		oracle = a.oracle
	}

	live, err := storage.NewMemoryStoreWithBins(cfg.Bins)
	if err != nil {
		return fmt.Errorf("failed to seed bins: %w", err)
	}

	bins := ledger.NewBinLedger(live, logger)
	if err := replayBins(ctx, bins, a.store); err != nil {
		return err
	}

	credits := ledger.NewCreditLedger(live, a.store, logger)
	if err := credits.Load(ctx); err != nil {
		return err
	}

	a.engine, err = engine.New(engine.Deps{
		Resolver: engine.NewResolver(a.knowledge, oracle, cfg.Oracle.MaxConcurrency, logger),
		Bins:     bins,
		Credits:  credits,
		Optimizer: route.NewOptimizer(
			route.WithDepot(cfg.Route.Depot),
			route.WithImprovement(cfg.Route.Improve),
			route.WithLogger(logger),
		),
		History:   a.store,
		Feedback:  a.store,
		Manifests: a.store,
		Extractor: extract.NewFileExtractor(),
		Logger:    logger,
	}, engine.Config{PickupThreshold: cfg.Route.Threshold})
	return err
}

func replayBins(ctx context.Context, bins *ledger.BinLedger, store service.Storage) error {
	history, err := store.ListHistory(ctx, -1)
	if err != nil {
		return fmt.Errorf("failed to load classification history: %w", err)
	}
	feedback, err := store.ListFeedback(ctx)
	if err != nil {
		return fmt.Errorf("failed to load feedback log: %w", err)
	}
	return bins.Replay(ctx, history, feedback)
}

// checkpoints returns a checkpoint manager, which only the sqlite backend supports.
func (a *app) checkpoints() (*storage.CheckpointManager, error) {
	if a.sqlite == nil {
		return nil, errors.New("checkpoints require storage.backend = sqlite")
	}
	return a.sqlite.NewCheckpointManager()
}

// Close releases every resource the app holds.
func (a *app) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
		<-a.watcher.Done()
	}
	if a.oracle != nil {
		a.oracle.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close storage", "error", err)
		}
	}
}
