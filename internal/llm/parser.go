package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
)

// ParsedClassification is a validated oracle answer.
type ParsedClassification struct {
	Category      model.Category
	Stream        model.Stream
	Recyclability model.Recyclability
	WeightKg      float64
	HasWeight     bool
}

// Record builds the classification record for item. The note is derived from
// the stream alone and a missing weight becomes model.DefaultItemWeightKg.
func (p ParsedClassification) Record(item string) model.ClassificationRecord {
	weight := model.DefaultItemWeightKg
	if p.HasWeight {
		weight = p.WeightKg
	}
	return model.ClassificationRecord{
		Item:          item,
		Category:      p.Category,
		Stream:        p.Stream,
		Recyclability: p.Recyclability,
		Note:          model.NoteForStream(p.Stream),
		WeightKg:      weight,
	}
}

// ParseClassification parses the oracle's free text reply. Every failure wraps
// common.ErrOracleFailure.
func ParseClassification(content string) (ParsedClassification, error) {
	obj, err := extractJSONObject(content)
	if err != nil {
		return ParsedClassification{}, fmt.Errorf("%w: %w", common.ErrOracleFailure, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return ParsedClassification{}, fmt.Errorf("%w: invalid JSON from LLM: %w", common.ErrOracleFailure, err)
	}

	category, err := stringField(fields, "category")
	if err != nil {
		return ParsedClassification{}, err
	}
	stream, err := stringField(fields, "stream")
	if err != nil {
		return ParsedClassification{}, err
	}
	recyclability, err := stringField(fields, "recyclability")
	if err != nil {
		return ParsedClassification{}, err
	}

	parsed := ParsedClassification{
		Category:      model.CategoryUnknown,
		Stream:        model.StreamUnknown,
		Recyclability: model.RecyclabilityNone,
	}
	if category != "" {
		parsed.Category = model.ParseCategory(category)
	}
	if stream != "" {
		parsed.Stream = model.ParseStream(stream)
	}
	if recyclability != "" {
		parsed.Recyclability = model.ParseRecyclability(recyclability)
	}
	parsed.WeightKg, parsed.HasWeight = weightField(fields["weight_kg"])

	return parsed, nil
}

// stringField returns a string field, "" when absent or null, and an error
// when the field holds any other JSON type.
func stringField(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: field %q is not a string", common.ErrOracleFailure, name)
	}
	return strings.TrimSpace(s), nil
}

// weightField coerces a number or numeric string. Negative and non-finite values count as missing.
func weightField(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var value float64
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		f, convErr := n.Float64()
		if convErr != nil {
			return 0, false
		}
		value = f
	} else {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "kg"))
		f, convErr := strconv.ParseFloat(s, 64)
		if convErr != nil {
			return 0, false
		}
		value = f
	}

	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, false
	}
	return value, true
}

// extractJSONObject pulls the outermost {...} out of free text.
func extractJSONObject(content string) ([]byte, error) {
	content = cleanMarkdownWrapper(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in response %q", truncate(content, 80))
	}
	return []byte(content[start : end+1]), nil
}

// cleanMarkdownWrapper strips ```json fences some models wrap around their answer.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	if nl := strings.IndexByte(content, '\n'); nl >= 0 {
		content = content[nl+1:]
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
