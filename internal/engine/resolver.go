package engine

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
)

// DefaultMaxConcurrency bounds parallel oracle calls per batch.
const DefaultMaxConcurrency = 8

// Resolver turns items into classification records: knowledge base first,
// then the oracle, then the fallback record. It never fails.
type Resolver struct {
	knowledge      KnowledgeBase
	oracle         Oracle
	logger         *slog.Logger
	maxConcurrency int
}

// NewResolver creates a resolver. oracle may be nil, in which case unknown
// items fall back immediately.
func NewResolver(knowledge KnowledgeBase, oracle Oracle, maxConcurrency int, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Resolver{
		knowledge:      knowledge,
		oracle:         oracle,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Resolve classifies one item. Oracle errors and panics yield model.FallbackRecord.
func (r *Resolver) Resolve(ctx context.Context, item string) (record model.ClassificationRecord) {
	if r.knowledge != nil {
		if rec, ok := r.knowledge.Lookup(item); ok {
			r.logger.Debug("knowledge graph hit", "item", item, "stream", rec.Stream)
			return rec
		}
	}
	if r.oracle == nil {
		r.logger.Debug("no oracle configured, using fallback", "item", item)
		return model.FallbackRecord(item)
	}

	defer func() {
		if p := recover(); p != nil {
			common.LogError(r.logger, fmt.Errorf("%w: panic: %v", common.ErrOracleFailure, p),
				"oracle panicked", common.Fields{"item": item})
			record = model.FallbackRecord(item)
		}
	}()

	parsed, err := r.oracle.Classify(ctx, item)
	if err != nil {
		r.logger.Warn("classification failed, using fallback", "item", item, "error", err)
		return model.FallbackRecord(item)
	}
	return parsed.Record(item)
}

// ResolveAll classifies items concurrently, at most maxConcurrency at a time.
// Results keep input order. onDone, if set, is called after each item and
// must be safe for concurrent use.
func (r *Resolver) ResolveAll(ctx context.Context, items []string, onDone func()) []model.ClassificationRecord {
	records := make([]model.ClassificationRecord, len(items))

	var g errgroup.Group
	g.SetLimit(r.maxConcurrency)
	for i, item := range items {
		g.Go(func() error {
			records[i] = r.Resolve(ctx, item)
			if onDone != nil {
				onDone()
			}
			return nil
		})
	}
	_ = g.Wait()

	return records
}
