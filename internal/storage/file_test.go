package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "data"), nil)
	require.NoError(t, err)
	require.NoError(t, fs.Migrate(context.Background()))
	return fs
}

func TestFileStoreCredits(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()

	balances, err := fs.LoadCredits(ctx)
	require.NoError(t, err)
	assert.Empty(t, balances)

	require.NoError(t, fs.SaveCredits(ctx, map[string]float64{"alice": 8}))

	data, err := os.ReadFile(filepath.Join(fs.Dir(), CreditsFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice": 8}`, string(data))

	balances, err = fs.LoadCredits(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"alice": 8}, balances)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, fs.SaveCredits(ctx, map[string]float64{"alice": float64(n)}))
		}(i)
	}
	wg.Wait()

	entries, err := os.ReadDir(fs.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, CreditsFile, entries[0].Name())

	_, err = fs.LoadCredits(ctx)
	require.NoError(t, err)
}

func TestFileStoreCorruptFile(t *testing.T) {
	fs := newTestFileStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(fs.Dir(), CreditsFile), []byte("{not json"), 0600))

	_, err := fs.LoadCredits(context.Background())
	assert.ErrorIs(t, err, common.ErrDatabaseCorrupted)
}

func TestFileStoreHistoryAndFeedback(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, fs.AppendHistory(ctx, testHistoryEntry("bin-A", ts, "water bottle")))
	require.NoError(t, fs.AppendHistory(ctx, testHistoryEntry("bin-B", ts, "banana")))

	history, err := fs.ListHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "bin-B", history[0].BinID)

	fb := model.Feedback{Timestamp: ts, Kind: model.FeedbackKindBin, TargetID: "bin-A", Status: model.FeedbackValid}
	require.NoError(t, fs.AppendFeedback(ctx, fb))
	log, err := fs.ListFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Feedback{fb}, log)
}

func TestFileStoreManifests(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()
	m := model.Manifest{ID: "m-1", Timestamp: time.Now().UTC(), TotalItems: 2}

	require.NoError(t, fs.SaveManifest(ctx, m))
	assert.ErrorIs(t, fs.SaveManifest(ctx, m), ErrInvalidManifest)

	got, err := fs.GetManifest(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalItems)

	_, err = fs.GetManifest(ctx, "m-2")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
