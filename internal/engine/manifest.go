package engine

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/wastewise/internal/model"
)

// BuildBagRecipes groups records by stream in first-seen order and sizes each
// group at model.ItemsPerBag items per bag.
func BuildBagRecipes(records []model.ClassificationRecord) []model.BagRecipe {
	index := make(map[model.Stream]int)
	var recipes []model.BagRecipe

	for _, rec := range records {
		stream := rec.Stream
		if strings.TrimSpace(string(stream)) == "" {
			stream = model.StreamUnknown
		}
		item := rec.Item
		if strings.TrimSpace(item) == "" {
			item = model.UnknownItemInstruction
		}
		note := rec.Note
		if strings.TrimSpace(note) == "" {
			note = model.NoteCheckItem
		}

		i, ok := index[stream]
		if !ok {
			i = len(recipes)
			index[stream] = i
			recipes = append(recipes, model.BagRecipe{Stream: stream})
		}
		recipes[i].Instructions = append(recipes[i].Instructions, model.BagInstruction{Item: item, Note: note})
	}

	for i := range recipes {
		n := len(recipes[i].Instructions)
		recipes[i].BagCount = max(1, (n+model.ItemsPerBag-1)/model.ItemsPerBag)
	}
	return recipes
}

// ManifestBuilder stamps batches with an id and timestamp.
type ManifestBuilder struct {
	now   func() time.Time
	newID func() string
}

// NewManifestBuilder creates a builder using the wall clock and random UUIDs.
func NewManifestBuilder() *ManifestBuilder {
	return &ManifestBuilder{now: time.Now, newID: uuid.NewString}
}

// Build returns the bag recipes and the manifest for one batch. location is
// copied so later changes to the bin do not leak into the manifest.
func (b *ManifestBuilder) Build(records []model.ClassificationRecord, location *model.Location) ([]model.BagRecipe, model.Manifest) {
	recipes := BuildBagRecipes(records)

	var totalBags int
	for _, r := range recipes {
		totalBags += r.BagCount
	}
	var totalWeight float64
	for _, rec := range records {
		totalWeight += rec.WeightKg
	}

	var loc *model.Location
	if location != nil {
		copied := *location
		loc = &copied
	}

	return recipes, model.Manifest{
		ID:              b.newID(),
		Timestamp:       b.now(),
		Location:        loc,
		BagRecipes:      recipes,
		ClassifiedItems: records,
		TotalItems:      len(records),
		TotalBags:       totalBags,
		TotalWeightKg:   math.Round(totalWeight*100) / 100,
	}
}
