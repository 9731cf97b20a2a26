// Package knowledge holds the packaging knowledge graph: a static mapping from
// keywords to pre-vetted classification records.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/wastewise/internal/model"
)

// Entry is a single knowledge graph record as stored on disk.
// WeightKg is optional; a nil weight defaults to model.DefaultItemWeightKg.
type Entry struct {
	WeightKg      *float64 `json:"weight_kg,omitempty" yaml:"weight_kg,omitempty"`
	Category      string   `json:"category" yaml:"category"`
	Stream        string   `json:"stream" yaml:"stream"`
	Recyclability string   `json:"recyclability" yaml:"recyclability"`
	Note          string   `json:"note" yaml:"note"`
}

type rule struct {
	keyword string
	entry   Entry
}

// Graph is an immutable keyword index. Lookups are longest-keyword-wins with
// ties broken by lexical keyword order, so results never depend on map order.
type Graph struct {
	rules []rule
}

// NewGraph builds a graph from keyword entries. Keywords are matched lower-cased;
// blank keywords are skipped.
func NewGraph(entries map[string]Entry) *Graph {
	g := &Graph{rules: make([]rule, 0, len(entries))}
	for kw, e := range entries {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		g.rules = append(g.rules, rule{keyword: kw, entry: e})
	}

	sort.Slice(g.rules, func(i, j int) bool {
		if len(g.rules[i].keyword) != len(g.rules[j].keyword) {
			return len(g.rules[i].keyword) > len(g.rules[j].keyword)
		}
		return g.rules[i].keyword < g.rules[j].keyword
	})

	return g
}

// Lookup finds the record for item. The returned record carries item verbatim.
func (g *Graph) Lookup(item string) (model.ClassificationRecord, bool) {
	if g == nil {
		return model.ClassificationRecord{}, false
	}
	lower := strings.ToLower(strings.TrimSpace(item))

	for _, r := range g.rules {
		if strings.Contains(lower, r.keyword) {
			return r.entry.record(item), true
		}
	}
	return model.ClassificationRecord{}, false
}

// Keywords returns the keywords in match-priority order.
func (g *Graph) Keywords() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.rules))
	for i, r := range g.rules {
		out[i] = r.keyword
	}
	return out
}

// Len returns the number of keywords in the graph.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.rules)
}

func (e Entry) record(item string) model.ClassificationRecord {
	weight := model.DefaultItemWeightKg
	if e.WeightKg != nil {
		weight = *e.WeightKg
	}
	return model.ClassificationRecord{
		Item:          item,
		Category:      model.Category(e.Category),
		Stream:        model.Stream(e.Stream),
		Recyclability: model.Recyclability(e.Recyclability),
		Note:          e.Note,
		WeightKg:      weight,
	}
}

// LoadFile reads a graph from a JSON or YAML file, chosen by extension.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge graph: %w", err)
	}

	entries := make(map[string]Entry)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse knowledge graph %s: %w", path, err)
	}

	for kw, e := range entries {
		if e.Category == "" || e.Stream == "" {
			return nil, fmt.Errorf("knowledge graph entry %q: category and stream are required", kw)
		}
	}

	return NewGraph(entries), nil
}
