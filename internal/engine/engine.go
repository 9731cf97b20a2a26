// Package engine runs the WasteWise pipeline: normalize raw text, resolve each
// item, build bag recipes and a manifest, and update the ledgers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/ledger"
	"github.com/Veraticus/wastewise/internal/model"
	"github.com/Veraticus/wastewise/internal/normalize"
	"github.com/Veraticus/wastewise/internal/route"
	"github.com/Veraticus/wastewise/internal/service"
)

// Deps are the collaborators an Engine is assembled from.
type Deps struct {
	Resolver  *Resolver
	Bins      *ledger.BinLedger
	Credits   *ledger.CreditLedger
	Optimizer *route.Optimizer
	History   service.HistoryStore
	Feedback  service.FeedbackStore
	Manifests service.ManifestStore
	Extractor TextExtractor
	Builder   *ManifestBuilder
	Logger    *slog.Logger
}

// Config holds tunables for the engine.
type Config struct {
	PickupThreshold float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{PickupThreshold: ledger.DefaultPickupThreshold}
}

// Engine is the entry point for every exposed operation.
type Engine struct {
	resolver  *Resolver
	builder   *ManifestBuilder
	bins      *ledger.BinLedger
	credits   *ledger.CreditLedger
	optimizer *route.Optimizer
	history   service.HistoryStore
	feedback  service.FeedbackStore
	manifests service.ManifestStore
	extractor TextExtractor
	logger    *slog.Logger
	now       func() time.Time
	config    Config
}

// New assembles an engine. Resolver, Bins, Credits and Feedback are required.
func New(deps Deps, config Config) (*Engine, error) {
	switch {
	case deps.Resolver == nil:
		return nil, fmt.Errorf("%w: resolver", common.ErrMissingConfig)
	case deps.Bins == nil:
		return nil, fmt.Errorf("%w: bin ledger", common.ErrMissingConfig)
	case deps.Credits == nil:
		return nil, fmt.Errorf("%w: credit ledger", common.ErrMissingConfig)
	case deps.Feedback == nil:
		return nil, fmt.Errorf("%w: feedback store", common.ErrMissingConfig)
	}
	if deps.Optimizer == nil {
		deps.Optimizer = route.NewOptimizer()
	}
	if deps.Builder == nil {
		deps.Builder = NewManifestBuilder()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if config.PickupThreshold <= 0 {
		config.PickupThreshold = ledger.DefaultPickupThreshold
	}

	return &Engine{
		resolver:  deps.Resolver,
		builder:   deps.Builder,
		bins:      deps.Bins,
		credits:   deps.Credits,
		optimizer: deps.Optimizer,
		history:   deps.History,
		feedback:  deps.Feedback,
		manifests: deps.Manifests,
		extractor: deps.Extractor,
		logger:    deps.Logger,
		now:       time.Now,
		config:    config,
	}, nil
}

// BatchOption customizes a single ProcessBatch call.
type BatchOption func(*batchOptions)

type batchOptions struct {
	onItem func(done, total int)
}

// WithProgress reports each resolved item. fn may be called from several goroutines
// but calls are serialized.
func WithProgress(fn func(done, total int)) BatchOption {
	return func(o *batchOptions) { o.onItem = fn }
}

// ProcessBatch classifies rawText for binID. It fails with common.ErrInvalidBin,
// common.ErrNoTextFound or common.ErrNoItemsFound before touching any state.
func (e *Engine) ProcessBatch(ctx context.Context, binID, rawText string, opts ...BatchOption) (*model.BatchResult, error) {
	var o batchOptions
	for _, opt := range opts {
		opt(&o)
	}

	location, err := e.bins.Location(ctx, binID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rawText) == "" {
		return nil, common.ErrNoTextFound
	}
	items := normalize.Items(rawText)
	if len(items) == 0 {
		return nil, common.ErrNoItemsFound
	}

	e.logger.Info("processing batch", "bin_id", binID, "items", len(items))
	start := time.Now()

	records := e.resolver.ResolveAll(ctx, items, progressCounter(len(items), o.onItem))
	recipes, manifest := e.builder.Build(records, &location)

	if _, err := e.bins.ApplyManifest(ctx, binID, manifest); err != nil {
		return nil, err
	}

	if e.history != nil {
		entry := model.HistoryEntry{Timestamp: manifest.Timestamp, BinID: binID, Items: records}
		if err := e.history.AppendHistory(ctx, entry); err != nil {
			common.LogError(e.logger, err, "failed to append classification history", common.Fields{"bin_id": binID})
		}
	}

	if e.manifests != nil {
		if err := e.manifests.SaveManifest(ctx, manifest); err != nil {
			common.LogError(e.logger, err, "failed to save manifest", common.Fields{"manifest_id": manifest.ID})
		}
	}

	e.logger.Info("batch processed",
		"bin_id", binID,
		"manifest_id", manifest.ID,
		"bags", manifest.TotalBags,
		"weight_kg", manifest.TotalWeightKg,
		"duration", time.Since(start))

	return &model.BatchResult{
		Manifest:        manifest,
		BinID:           binID,
		ClassifiedItems: records,
		BagRecipes:      recipes,
	}, nil
}

// ProcessFile extracts text from path and processes it like ProcessBatch.
func (e *Engine) ProcessFile(ctx context.Context, binID, path string, opts ...BatchOption) (*model.BatchResult, error) {
	if _, err := e.bins.Location(ctx, binID); err != nil {
		return nil, err
	}
	if e.extractor == nil {
		return nil, fmt.Errorf("%w: text extractor", common.ErrMissingConfig)
	}
	text, err := e.extractor.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}
	return e.ProcessBatch(ctx, binID, text, opts...)
}

// RecordManifestFeedback appends a collector verdict on a manifest to the feedback log.
func (e *Engine) RecordManifestFeedback(ctx context.Context, manifestID string, status model.FeedbackStatus, ts time.Time) error {
	if err := validStatus(status); err != nil {
		return err
	}
	if e.manifests != nil {
		if _, err := e.manifests.GetManifest(ctx, manifestID); errors.Is(err, common.ErrNotFound) {
			e.logger.Warn("feedback for unknown manifest", "manifest_id", manifestID)
		}
	}
	return e.appendFeedback(ctx, model.FeedbackKindManifest, manifestID, status, ts)
}

// RecordBinFeedback appends a collector verdict on a bin and applies it to the bin ledger.
func (e *Engine) RecordBinFeedback(ctx context.Context, binID string, status model.FeedbackStatus, ts time.Time) error {
	if err := validStatus(status); err != nil {
		return err
	}
	if err := e.appendFeedback(ctx, model.FeedbackKindBin, binID, status, ts); err != nil {
		return err
	}
	return e.bins.RecordFeedback(ctx, binID, status)
}

func (e *Engine) appendFeedback(ctx context.Context, kind model.FeedbackKind, target string, status model.FeedbackStatus, ts time.Time) error {
	if ts.IsZero() {
		ts = e.now()
	}
	fb := model.Feedback{Timestamp: ts, RecordedAt: e.now(), Kind: kind, TargetID: target, Status: status}
	if err := e.feedback.AppendFeedback(ctx, fb); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	e.logger.Info("feedback recorded", "kind", kind, "target_id", target, "status", status)
	return nil
}

func validStatus(status model.FeedbackStatus) error {
	switch status {
	case model.FeedbackValid, model.FeedbackContaminated:
		return nil
	default:
		return common.NewUserError(fmt.Sprintf("collector status must be %q or %q", model.FeedbackValid, model.FeedbackContaminated), nil)
	}
}

// Analytics returns a snapshot of bin state and the feedback log.
func (e *Engine) Analytics(ctx context.Context) (*model.Analytics, error) {
	bins, err := e.bins.Bins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}
	log, err := e.feedback.ListFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}

	status := make(map[string]model.Bin, len(bins))
	for _, b := range bins {
		status[b.ID] = b
	}
	return &model.Analytics{BinStatus: status, FeedbackLog: log, Summary: model.Summarize(log)}, nil
}

// Bins returns every bin ordered by id.
func (e *Engine) Bins(ctx context.Context) ([]model.Bin, error) {
	return e.bins.Bins(ctx)
}

// OptimizedRoute plans a pickup tour through every bin at or above the pickup
// threshold. It fails with common.ErrNoBinsEligible when no bin qualifies. An
// infeasible tour is reported through model.RouteFailedDistance, not an error.
func (e *Engine) OptimizedRoute(ctx context.Context) (model.RouteSolution, error) {
	eligible, err := e.bins.EligibleForPickup(ctx, e.config.PickupThreshold)
	if err != nil {
		return model.RouteSolution{}, err
	}
	if len(eligible) == 0 {
		return model.RouteSolution{}, common.ErrNoBinsEligible
	}

	locations := make([]model.Location, len(eligible))
	for i, b := range eligible {
		locations[i] = b.Location
	}

	solution := e.optimizer.Optimize(locations)
	if solution.Failed() {
		e.logger.Warn("route optimization failed", "error", common.ErrRouteInfeasible, "bins", len(eligible))
	} else {
		e.logger.Info("route planned", "bins", len(eligible), "distance", solution.Distance)
	}
	return solution, nil
}

// Deposit credits a user for a recyclable plastics deposit.
func (e *Engine) Deposit(ctx context.Context, d model.Deposit) (model.DepositReceipt, error) {
	if d.Timestamp.IsZero() {
		d.Timestamp = e.now()
	}
	receipt, err := e.credits.Deposit(ctx, d.UserID, d.WasteType, d.WeightKg)
	if err != nil {
		e.logger.Info("deposit rejected", "user_id", d.UserID, "waste_type", d.WasteType, "error", err)
		return model.DepositReceipt{}, err
	}
	e.logger.Debug("deposit accepted", "user_id", d.UserID, "at", d.Timestamp)
	return receipt, nil
}

// Balance returns a user's credit balance.
func (e *Engine) Balance(ctx context.Context, userID string) (float64, error) {
	return e.credits.Balance(ctx, userID)
}

// History returns the most recent classification history entries.
func (e *Engine) History(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	if e.history == nil {
		return nil, nil
	}
	return e.history.ListHistory(ctx, limit)
}
