package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/wastewise/internal/model"
)

func TestRenderBatch(t *testing.T) {
	result := &model.BatchResult{
		BinID: "bin-A",
		Manifest: model.Manifest{
			ID:            "m-1",
			TotalItems:    2,
			TotalBags:     2,
			TotalWeightKg: 0.45,
		},
		BagRecipes: []model.BagRecipe{
			{Stream: model.StreamRecyclable, BagCount: 1, Instructions: []model.BagInstruction{{Item: "water bottle", Note: model.NoteRinseAndFlatten}}},
			{Stream: model.StreamWet, BagCount: 1, Instructions: []model.BagInstruction{{Item: "banana peel", Note: "Compost."}}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderBatch(&buf, result))
	out := buf.String()
	assert.Contains(t, out, "water bottle")
	assert.Contains(t, out, "banana peel")
	assert.Contains(t, out, "m-1")
	assert.Contains(t, out, "0.45 kg")
}

func TestRenderBins(t *testing.T) {
	bins := []model.Bin{
		{ID: "bin-A", CapacityKg: 25, FillLevelKg: 20},
		{ID: "bin-B", CapacityKg: 50, FillLevelKg: 5},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderBins(&buf, bins, 75))
	out := buf.String()
	assert.Contains(t, out, "bin-A")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "10.0%")
}

func TestRenderRoute(t *testing.T) {
	t.Run("solved", func(t *testing.T) {
		var buf bytes.Buffer
		sol := model.RouteSolution{
			Path:     []model.Location{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 0, Lon: 0}},
			Distance: 2.8284,
		}
		require.NoError(t, RenderRoute(&buf, sol))
		assert.Contains(t, buf.String(), "depot")
		assert.Contains(t, buf.String(), "2.8284")
	})

	t.Run("failed", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderRoute(&buf, model.RouteSolution{Distance: model.RouteFailedDistance}))
		assert.Contains(t, buf.String(), "no feasible tour")
	})
}

func TestRenderAnalytics(t *testing.T) {
	a := &model.Analytics{
		BinStatus: map[string]model.Bin{
			"bin-B": {ID: "bin-B", CapacityKg: 10},
			"bin-A": {ID: "bin-A", CapacityKg: 10},
		},
		Summary: model.FeedbackSummary{Total: 4, Valid: 3, Contaminated: 1, ContaminationRate: 25},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderAnalytics(&buf, a, 75))
	out := buf.String()
	assert.Contains(t, out, "25.0%")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("bin-A")), bytes.Index(buf.Bytes(), []byte("bin-B")))
}

func TestRenderHistory(t *testing.T) {
	entries := []model.HistoryEntry{{
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		BinID:     "bin-C",
		Items:     []model.ClassificationRecord{{Item: "glass jar", Stream: model.StreamRecyclable, WeightKg: 0.3}},
	}}

	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, entries))
	assert.Contains(t, buf.String(), "glass jar")
	assert.Contains(t, buf.String(), "bin-C")
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		want string
		size int64
	}{
		{size: 512, want: "512 B"},
		{size: 2048, want: "2.0 KB"},
		{size: 5 * 1024 * 1024, want: "5.0 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFileSize(tt.size))
	}
}

func TestProgressReporter(t *testing.T) {
	var buf bytes.Buffer
	report := NewProgressReporter(&buf, "Classifying items...")
	for i := 1; i <= 3; i++ {
		report(i, 3)
	}
	assert.Contains(t, buf.String(), "Classifying items...")
}
