package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    ParsedClassification
	}{
		{
			name:    "plain object",
			content: `{"category":"Glass","stream":"Recyclable","recyclability":"High","weight_kg":0.4}`,
			want: ParsedClassification{
				Category: model.CategoryGlass, Stream: model.StreamRecyclable,
				Recyclability: model.RecyclabilityHigh, WeightKg: 0.4, HasWeight: true,
			},
		},
		{
			name:    "surrounding prose and fences",
			content: "Sure!\n```json\n{\"category\":\"pet\",\"stream\":\"dry\",\"recyclability\":\"low\",\"weight_kg\":\"0.05\"}\n```",
			want: ParsedClassification{
				Category: model.CategoryPET, Stream: model.StreamDry,
				Recyclability: model.RecyclabilityLow, WeightKg: 0.05, HasWeight: true,
			},
		},
		{
			name:    "missing fields default",
			content: `{"weight_kg": null}`,
			want: ParsedClassification{
				Category: model.CategoryUnknown, Stream: model.StreamUnknown,
				Recyclability: model.RecyclabilityNone,
			},
		},
		{
			name:    "negative weight ignored",
			content: `{"category":"Metal","stream":"Recyclable","recyclability":"High","weight_kg":-2}`,
			want: ParsedClassification{
				Category: model.CategoryMetal, Stream: model.StreamRecyclable,
				Recyclability: model.RecyclabilityHigh,
			},
		},
		{
			name:    "unknown values kept verbatim",
			content: `{"category":"Textile","stream":"Special","recyclability":"Moderate","weight_kg":"0.3 kg"}`,
			want: ParsedClassification{
				Category: model.Category("Textile"), Stream: model.Stream("Special"),
				Recyclability: model.RecyclabilityModerate, WeightKg: 0.3, HasWeight: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClassification(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClassificationErrors(t *testing.T) {
	for name, content := range map[string]string{
		"no json":          "I cannot classify that",
		"broken json":      `{"category": "Glass",`,
		"non string field": `{"category": 5, "stream": "Dry"}`,
		"empty":            "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseClassification(content)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrOracleFailure)
		})
	}
}

func TestParsedClassificationRecord(t *testing.T) {
	rec := ParsedClassification{
		Category: model.CategoryCompost, Stream: model.StreamWet, Recyclability: model.RecyclabilityNone,
	}.Record("kale")

	assert.Equal(t, "kale", rec.Item)
	assert.Equal(t, model.NoteWetCompost, rec.Note)
	assert.InDelta(t, model.DefaultItemWeightKg, rec.WeightKg, 1e-9)
}

func TestCleanMarkdownWrapper(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("  {\"a\":1}  "))
}
