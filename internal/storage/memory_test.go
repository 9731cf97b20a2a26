package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
)

func TestMemoryStoreBins(t *testing.T) {
	store, err := NewMemoryStoreWithBins([]model.Bin{
		{ID: "bin-B", CapacityKg: 25},
		{ID: "bin-A", CapacityKg: 25},
	})
	require.NoError(t, err)
	ctx := context.Background()

	bins, err := store.ListBins(ctx)
	require.NoError(t, err)
	require.Len(t, bins, 2)
	assert.Equal(t, "bin-A", bins[0].ID)

	updated, err := store.UpdateBin(ctx, "bin-A", func(b *model.Bin) error {
		b.FillLevelKg += 30
		return nil
	})
	require.NoError(t, err)
	assert.InDelta(t, 30.0, updated.FillLevelKg, 1e-9)

	_, err = store.UpdateBin(ctx, "bin-Z", func(*model.Bin) error { return nil })
	assert.ErrorIs(t, err, common.ErrNotFound)

	boom := errors.New("boom")
	_, err = store.UpdateBin(ctx, "bin-A", func(b *model.Bin) error {
		b.FillLevelKg = 0
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, err := store.GetBin(ctx, "bin-A")
	require.NoError(t, err)
	assert.InDelta(t, 30.0, got.FillLevelKg, 1e-9, "failed update must not change the bin")
}

func TestMemoryStoreRejectsBadSeeds(t *testing.T) {
	_, err := NewMemoryStoreWithBins([]model.Bin{{ID: "bin-A", CapacityKg: 25}, {ID: "bin-A", CapacityKg: 50}})
	assert.ErrorIs(t, err, ErrInvalidBin)

	_, err = NewMemoryStoreWithBins([]model.Bin{{ID: "bin-A"}})
	assert.ErrorIs(t, err, ErrInvalidBin)
}

func TestMemoryStoreConcurrentUpdates(t *testing.T) {
	store, err := NewMemoryStoreWithBins([]model.Bin{{ID: "bin-A", CapacityKg: 25}})
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.UpdateBin(ctx, "bin-A", func(b *model.Bin) error { b.FillLevelKg++; return nil })
		}()
		go func() {
			defer wg.Done()
			_, _ = store.UpdateBalance(ctx, "alice", func(v float64) (float64, error) { return v + 1, nil })
		}()
	}
	wg.Wait()

	bin, err := store.GetBin(ctx, "bin-A")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, bin.FillLevelKg, 1e-9)

	balance, err := store.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, balance, 1e-9)
}

func TestMemoryStoreCreditsSnapshotIsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Replace(ctx, map[string]float64{"alice": 1}))

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	snap["alice"] = 1000

	balance, err := store.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, balance, 1e-9)

	unknown, err := store.Balance(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, unknown)
}
