package model

import "time"

// ItemsPerBag is the number of items packed into a single bag.
const ItemsPerBag = 10

// BagInstruction tells the user how to dispose of one item.
type BagInstruction struct {
	Item string `json:"item"`
	Note string `json:"note"`
}

// BagRecipe is the packaging instruction set for one stream within a batch.
type BagRecipe struct {
	Stream       Stream           `json:"stream"`
	Instructions []BagInstruction `json:"instructions"`
	BagCount     int              `json:"bag_count"`
}

// Manifest is the immutable record of one processed batch.
type Manifest struct {
	Timestamp       time.Time              `json:"timestamp"`
	Location        *Location              `json:"location"`
	ID              string                 `json:"manifest_id"`
	BagRecipes      []BagRecipe            `json:"bag_recipes"`
	ClassifiedItems []ClassificationRecord `json:"classified_items"`
	TotalItems      int                    `json:"total_items"`
	TotalBags       int                    `json:"total_bags"`
	TotalWeightKg   float64                `json:"total_weight_kg"`
}

// BatchResult is everything produced by processing one batch of text.
type BatchResult struct {
	Manifest        Manifest               `json:"manifest"`
	BinID           string                 `json:"bin_id"`
	ClassifiedItems []ClassificationRecord `json:"classified_items"`
	BagRecipes      []BagRecipe            `json:"bag_recipes"`
}

// HistoryEntry is one record of the classification history log.
type HistoryEntry struct {
	// Timestamp is the server clock when the manifest was issued.
	Timestamp time.Time              `json:"timestamp"`
	BinID     string                 `json:"bin_id"`
	Items     []ClassificationRecord `json:"items"`
}
