package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/config"
	"github.com/Veraticus/wastewise/internal/model"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	v := config.NewViper()
	v.Set("storage.backend", backend)
	v.Set("storage.dir", dir)
	v.Set("database.path", filepath.Join(dir, "wastewise.db"))
	v.Set("oracle.enabled", false)
	v.Set("bins", []map[string]any{
		{"id": "bin-X", "capacity_kg": 0.6, "location": []float64{1, 1}},
		{"id": "bin-Y", "capacity_kg": 50, "location": []float64{2, 2}},
	})
	v.Set("route.depot", []float64{0, 0})

	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func TestAppStatePersistsAcrossRuns(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendFile} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			ctx := context.Background()

			a, err := newApp(ctx, cfg, slog.Default())
			require.NoError(t, err)
			result, err := a.engine.ProcessBatch(ctx, "bin-X", "wine bottle\nbanana peel")
			require.NoError(t, err)
			assert.InDelta(t, 0.54, result.Manifest.TotalWeightKg, 1e-9)
			_, err = a.engine.Deposit(ctx, model.Deposit{UserID: "alice", WasteType: "Recyclable Plastics", WeightKg: 2})
			require.NoError(t, err)
			a.Close()

			a, err = newApp(ctx, cfg, slog.Default())
			require.NoError(t, err)
			defer a.Close()

			bins, err := a.engine.Bins(ctx)
			require.NoError(t, err)
			require.Len(t, bins, 2)
			assert.InDelta(t, 0.54, bins[0].FillLevelKg, 1e-9, "fill is rebuilt from history")

			balance, err := a.engine.Balance(ctx, "alice")
			require.NoError(t, err)
			assert.InDelta(t, 2.0, balance, 1e-9)

			solution, err := a.engine.OptimizedRoute(ctx)
			require.NoError(t, err)
			assert.Equal(t, []model.Location{{Lat: 1, Lon: 1}}, solution.Path, "a single eligible bin needs no tour")
			assert.Zero(t, solution.Distance)
		})
	}
}

func TestAppValidFeedbackSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	ctx := context.Background()

	a, err := newApp(ctx, cfg, slog.Default())
	require.NoError(t, err)
	_, err = a.engine.ProcessBatch(ctx, "bin-X", "wine bottle")
	require.NoError(t, err)
	require.NoError(t, a.engine.RecordBinFeedback(ctx, "bin-X", model.FeedbackValid, time.Time{}))
	a.Close()

	a, err = newApp(ctx, cfg, slog.Default())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.engine.OptimizedRoute(ctx)
	assert.ErrorIs(t, err, common.ErrNoBinsEligible)
}

func TestAppMemoryBackend(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	ctx := context.Background()

	a, err := newApp(ctx, cfg, slog.Default())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.engine.ProcessBatch(ctx, "bin-Y", "glass jar")
	require.NoError(t, err)
	_, err = a.checkpoints()
	assert.Error(t, err)
}

func TestAppRejectsBadKnowledgePath(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Knowledge.Path = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := newApp(context.Background(), cfg, slog.Default())
	assert.Error(t, err)
}

func TestRootCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
logging:
  level: error
database:
  path: `+filepath.Join(dir, "wastewise.db")+`
oracle:
  enabled: false
bins:
  - id: bin-X
    capacity_kg: 1
    location: [1, 1]
`), 0600))

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
		require.NoError(t, rootCmd.Execute(), out.String())
		return out.String()
	}

	out := run("process", "--bin", "bin-X", "--json", "wine bottle", "glass jar")
	var result model.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Manifest.TotalItems)

	out = run("bins", "--json")
	var bins []model.Bin
	require.NoError(t, json.Unmarshal([]byte(out), &bins))
	require.Len(t, bins, 1)
	assert.InDelta(t, 0.75, bins[0].FillLevelKg, 1e-9)

	out = run("feedback", "manifest", result.Manifest.ID, "contaminated")
	assert.Contains(t, out, "Contaminated")

	out = run("analytics", "--json")
	var analytics model.Analytics
	require.NoError(t, json.Unmarshal([]byte(out), &analytics))
	assert.Equal(t, 1, analytics.Summary.Contaminated)

	out = run("deposit", "bob", "1.5", "recyclable", "plastics")
	assert.Contains(t, out, "1.50")

	out = run("balance", "bob", "--json")
	assert.Contains(t, out, `"balance": 1.5`)

	out = run("checkpoint", "create", "--tag", "snap")
	assert.Contains(t, out, "snap")
}

func TestParseStatus(t *testing.T) {
	status, err := parseStatus(" VALID ")
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackValid, status)

	_, err = parseStatus("maybe")
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestBatchText(t *testing.T) {
	text, err := batchText(bytes.NewBufferString("a\nb\n"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", text)

	text, err = batchText(nil, []string{"2x soda", "banana"})
	require.NoError(t, err)
	assert.Equal(t, "2x soda\nbanana", text)
}
