package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/wastewise/internal/llm"
	"github.com/Veraticus/wastewise/internal/model"
)

func TestResolveKnowledgeHit(t *testing.T) {
	oracle := NewMockOracle()
	r := NewResolver(testGraph(), oracle, 0, nil)

	rec := r.Resolve(context.Background(), "Big Water Bottle")
	assert.Equal(t, "Big Water Bottle", rec.Item)
	assert.Equal(t, model.CategoryPET, rec.Category)
	assert.InDelta(t, 0.5, rec.WeightKg, 1e-9)
	assert.Zero(t, oracle.CallCount())
}

func TestResolveOracle(t *testing.T) {
	r := NewResolver(testGraph(), NewMockOracle(), 0, nil)

	rec := r.Resolve(context.Background(), "mango peel")
	assert.Equal(t, model.ClassificationRecord{
		Item: "mango peel", Category: model.CategoryCompost, Stream: model.StreamWet,
		Recyclability: model.RecyclabilityNone, Note: model.NoteWetCompost, WeightKg: 0.1,
	}, rec)

	rec = r.Resolve(context.Background(), "toffee wrapper")
	assert.InDelta(t, model.DefaultItemWeightKg, rec.WeightKg, 1e-9, "missing weight defaults")
}

func TestResolveFallbacks(t *testing.T) {
	oracle := NewMockOracle().
		FailOn("broken thing", errors.New("invalid JSON from LLM")).
		PanicOn("cursed thing")

	tests := []struct {
		resolver *Resolver
		name     string
		item     string
	}{
		{name: "oracle error", resolver: NewResolver(testGraph(), oracle, 0, nil), item: "broken thing"},
		{name: "oracle panic", resolver: NewResolver(testGraph(), oracle, 0, nil), item: "cursed thing"},
		{name: "no oracle", resolver: NewResolver(testGraph(), nil, 0, nil), item: "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.resolver.Resolve(context.Background(), tt.item)
			assert.Equal(t, model.FallbackRecord(tt.item), rec)
			assert.Equal(t, model.NoteFailed, rec.Note)
		})
	}
}

func TestResolveAllTimeoutFallsBack(t *testing.T) {
	r := NewResolver(testGraph(), NewMockOracle().WithDelay(time.Second), 0, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	records := r.ResolveAll(ctx, []string{"slow one", "banana", "slow two"}, nil)
	require.Len(t, records, 3)
	assert.Equal(t, model.FallbackRecord("slow one"), records[0])
	assert.Equal(t, model.StreamWet, records[1].Stream)
	assert.Equal(t, model.FallbackRecord("slow two"), records[2])
}

// gaugeOracle tracks how many calls are in flight.
type gaugeOracle struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (g *gaugeOracle) Classify(context.Context, string) (llm.ParsedClassification, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return llm.ParsedClassification{Stream: model.StreamDry}, nil
}

func TestResolveAllBoundedAndOrdered(t *testing.T) {
	oracle := &gaugeOracle{}
	r := NewResolver(nil, oracle, 3, nil)

	items := make([]string, 25)
	for i := range items {
		items[i] = fmt.Sprintf("item %c", 'a'+i)
	}

	var done atomic.Int32
	records := r.ResolveAll(context.Background(), items, func() { done.Add(1) })

	require.Len(t, records, len(items))
	for i, rec := range records {
		assert.Equal(t, items[i], rec.Item)
	}
	assert.Equal(t, int32(len(items)), done.Load())
	assert.LessOrEqual(t, oracle.peak.Load(), int32(3))
}

func TestResolveAllSiblingsSurviveFailures(t *testing.T) {
	oracle := NewMockOracle().FailOn("bad one", errors.New("boom")).PanicOn("bad two")
	r := NewResolver(testGraph(), oracle, 2, nil)

	records := r.ResolveAll(context.Background(), []string{"bad one", "glass jar", "bad two", "water bottle"}, nil)
	require.Len(t, records, 4)
	assert.Equal(t, model.CategoryUnknown, records[0].Category)
	assert.Equal(t, model.CategoryGlass, records[1].Category)
	assert.Equal(t, model.CategoryUnknown, records[2].Category)
	assert.Equal(t, model.CategoryPET, records[3].Category)
}

func TestResolverIsSafeForConcurrentBatches(t *testing.T) {
	r := NewResolver(testGraph(), NewMockOracle(), 4, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records := r.ResolveAll(context.Background(), []string{"banana", "jar lid", "mystery"}, nil)
			assert.Len(t, records, 3)
		}()
	}
	wg.Wait()
}
