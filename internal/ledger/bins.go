// Package ledger tracks bin fill levels and user recycling credits.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
	"github.com/Veraticus/wastewise/internal/service"
)

// DefaultPickupThreshold is the fill percentage at which a bin needs collecting.
const DefaultPickupThreshold = 75.0

// BinLedger applies manifests and collector signals to the bin registry.
type BinLedger struct {
	store  service.BinStore
	logger *slog.Logger
}

// NewBinLedger creates a ledger over store.
func NewBinLedger(store service.BinStore, logger *slog.Logger) *BinLedger {
	if logger == nil {
		logger = slog.Default()
	}
	return &BinLedger{store: store, logger: logger}
}

// ApplyManifest adds the manifest's weight to the bin. Fill is not capped at capacity.
func (l *BinLedger) ApplyManifest(ctx context.Context, binID string, manifest model.Manifest) (model.Bin, error) {
	bin, err := l.store.UpdateBin(ctx, binID, func(b *model.Bin) error {
		b.FillLevelKg = roundKg(b.FillLevelKg + manifest.TotalWeightKg)
		return nil
	})
	if err != nil {
		return model.Bin{}, translateBinErr(binID, err)
	}

	l.logger.Info("bin fill updated",
		"bin_id", binID,
		"manifest_id", manifest.ID,
		"added_kg", manifest.TotalWeightKg,
		"fill_kg", bin.FillLevelKg,
		"fill_pct", math.Round(bin.FillPercent()))
	if bin.FillLevelKg > bin.CapacityKg {
		l.logger.Warn("bin over capacity", "bin_id", binID, "fill_kg", bin.FillLevelKg, "capacity_kg", bin.CapacityKg)
	}
	return bin, nil
}

// RecordFeedback applies a collector signal. Valid empties the bin; Contaminated
// is only logged. Unknown bins are a logged no-op.
func (l *BinLedger) RecordFeedback(ctx context.Context, binID string, status model.FeedbackStatus) error {
	switch status {
	case model.FeedbackValid:
		_, err := l.store.UpdateBin(ctx, binID, func(b *model.Bin) error {
			b.FillLevelKg = 0
			return nil
		})
		if errors.Is(err, common.ErrNotFound) {
			l.logger.Warn("feedback for unknown bin ignored", "bin_id", binID, "status", status)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to reset bin %s: %w", binID, err)
		}
		l.logger.Info("bin emptied", "bin_id", binID)
	case model.FeedbackContaminated:
		l.logger.Warn("bin reported contaminated", "bin_id", binID)
	default:
		l.logger.Warn("unknown collector status ignored", "bin_id", binID, "status", status)
	}
	return nil
}

// EligibleForPickup returns bins whose fill percentage is at least threshold, ordered by id.
func (l *BinLedger) EligibleForPickup(ctx context.Context, threshold float64) ([]model.Bin, error) {
	bins, err := l.store.ListBins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}

	var eligible []model.Bin
	for _, bin := range bins {
		if bin.FillPercent() >= threshold {
			eligible = append(eligible, bin)
		}
	}
	return eligible, nil
}

// Bins returns a snapshot of every bin, ordered by id.
func (l *BinLedger) Bins(ctx context.Context) ([]model.Bin, error) {
	return l.store.ListBins(ctx)
}

// Bin returns one bin or common.ErrInvalidBin.
func (l *BinLedger) Bin(ctx context.Context, binID string) (model.Bin, error) {
	bin, err := l.store.GetBin(ctx, binID)
	if err != nil {
		return model.Bin{}, translateBinErr(binID, err)
	}
	return bin, nil
}

// Location returns a copy of the bin's location.
func (l *BinLedger) Location(ctx context.Context, binID string) (model.Location, error) {
	bin, err := l.Bin(ctx, binID)
	if err != nil {
		return model.Location{}, err
	}
	return bin.Location, nil
}

type binEvent struct {
	at    time.Time
	binID string
	addKg float64
	reset bool
}

// Replay rebuilds fill levels from the classification history and the bin
// feedback log in server arrival order: history by Timestamp, feedback by
// ReplayTime, never by the collector's verdict time. At equal times history
// applies first.
// Events for bins that are no longer configured are skipped.
func (l *BinLedger) Replay(ctx context.Context, history []model.HistoryEntry, feedback []model.Feedback) error {
	events := make([]binEvent, 0, len(history)+len(feedback))
	for _, h := range history {
		var kg float64
		for _, rec := range h.Items {
			kg += rec.WeightKg
		}
		events = append(events, binEvent{at: h.Timestamp, binID: h.BinID, addKg: roundKg(kg)})
	}
	for _, fb := range feedback {
		if fb.Kind == model.FeedbackKindBin && fb.Status == model.FeedbackValid {
			events = append(events, binEvent{at: fb.ReplayTime(), binID: fb.TargetID, reset: true})
		}
	}
	slices.SortStableFunc(events, func(a, b binEvent) int { return a.at.Compare(b.at) })

	var applied int
	for _, ev := range events {
		_, err := l.store.UpdateBin(ctx, ev.binID, func(b *model.Bin) error {
			if ev.reset {
				b.FillLevelKg = 0
			} else {
				b.FillLevelKg = roundKg(b.FillLevelKg + ev.addKg)
			}
			return nil
		})
		if errors.Is(err, common.ErrNotFound) {
			l.logger.Debug("replay skipped unknown bin", "bin_id", ev.binID)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to replay bin %s: %w", ev.binID, err)
		}
		applied++
	}
	l.logger.Debug("bin ledger replayed", "events", applied)
	return nil
}

func translateBinErr(binID string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("%w: %s", common.ErrInvalidBin, binID)
	}
	return err
}

func roundKg(v float64) float64 {
	return math.Round(v*100) / 100
}
