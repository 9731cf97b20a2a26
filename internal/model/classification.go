// Package model defines the core domain models used throughout the application.
package model

import "strings"

// Category is the material category of a classified item.
type Category string

// Category constants.
const (
	CategoryPET     Category = "PET"
	CategoryGlass   Category = "Glass"
	CategoryPaper   Category = "Paper"
	CategoryMetal   Category = "Metal"
	CategoryMLP     Category = "MLP"
	CategoryCompost Category = "Compost"
	CategoryOther   Category = "Other"
	CategoryUnknown Category = "Unknown"
)

// Stream is the disposal bucket an item belongs to. Bag recipes are grouped by stream.
type Stream string

// Stream constants.
const (
	StreamDry        Stream = "Dry"
	StreamWet        Stream = "Wet"
	StreamRecyclable Stream = "Recyclable"
	StreamUnknown    Stream = "Unknown"
	StreamNone       Stream = "None"
)

// Recyclability grades how well an item can be recycled.
type Recyclability string

// Recyclability constants.
const (
	RecyclabilityHigh     Recyclability = "High"
	RecyclabilityModerate Recyclability = "Moderate"
	RecyclabilityLow      Recyclability = "Low"
	RecyclabilityNone     Recyclability = "None"
)

// Disposal notes attached to classification records.
const (
	NoteCheckItem          = "Check item before disposal."
	NoteFailed             = "Classification failed. Check item before disposal."
	NoteWetCompost         = "Dispose as wet compost."
	NoteDryRecyclables     = "Dispose as dry recyclables."
	NoteRinseAndFlatten    = "Rinse & flatten."
	DefaultItemWeightKg    = 0.01
	UnknownItemInstruction = "Unknown Item"
)

// ClassificationRecord is the resolved classification of a single item.
// It is produced exactly once per input item and never mutated afterwards.
type ClassificationRecord struct {
	Item          string        `json:"item" yaml:"item"`
	Category      Category      `json:"category" yaml:"category"`
	Stream        Stream        `json:"stream" yaml:"stream"`
	Recyclability Recyclability `json:"recyclability" yaml:"recyclability"`
	Note          string        `json:"note" yaml:"note"`
	WeightKg      float64       `json:"weight_kg" yaml:"weight_kg"`
}

// FallbackRecord returns the safe record used whenever an item cannot be classified.
func FallbackRecord(item string) ClassificationRecord {
	return ClassificationRecord{
		Item:          item,
		Category:      CategoryUnknown,
		Stream:        StreamUnknown,
		Recyclability: RecyclabilityNone,
		Note:          NoteFailed,
		WeightKg:      DefaultItemWeightKg,
	}
}

// NoteForStream derives the disposal note from a stream.
func NoteForStream(s Stream) string {
	switch s {
	case StreamWet:
		return NoteWetCompost
	case StreamDry:
		return NoteDryRecyclables
	case StreamRecyclable:
		return NoteRinseAndFlatten
	default:
		return NoteCheckItem
	}
}

// ParseCategory maps a free-form value onto a known category, case-insensitively.
// Values that match nothing are kept verbatim.
func ParseCategory(v string) Category {
	v = strings.TrimSpace(v)
	for _, c := range []Category{CategoryPET, CategoryGlass, CategoryPaper, CategoryMetal,
		CategoryMLP, CategoryCompost, CategoryOther, CategoryUnknown} {
		if strings.EqualFold(v, string(c)) {
			return c
		}
	}
	return Category(v)
}

// ParseStream maps a free-form value onto a known stream, case-insensitively.
// Values that match nothing are kept verbatim.
func ParseStream(v string) Stream {
	v = strings.TrimSpace(v)
	for _, s := range []Stream{StreamDry, StreamWet, StreamRecyclable, StreamUnknown, StreamNone} {
		if strings.EqualFold(v, string(s)) {
			return s
		}
	}
	return Stream(v)
}

// ParseRecyclability maps a free-form value onto a known grade, case-insensitively.
// Values that match nothing are kept verbatim.
func ParseRecyclability(v string) Recyclability {
	v = strings.TrimSpace(v)
	for _, r := range []Recyclability{RecyclabilityHigh, RecyclabilityModerate, RecyclabilityLow, RecyclabilityNone} {
		if strings.EqualFold(v, string(r)) {
			return r
		}
	}
	return Recyclability(v)
}
