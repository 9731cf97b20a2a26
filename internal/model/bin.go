package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Location is a (latitude, longitude) pair. It encodes as a two-element JSON array.
type Location struct {
	Lat float64
	Lon float64
}

// MarshalJSON encodes the location as [lat, lon].
func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{l.Lat, l.Lon})
}

// UnmarshalJSON decodes a [lat, lon] array.
func (l *Location) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("location must be a [lat, lon] array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("location must have exactly 2 coordinates, got %d", len(pair))
	}
	l.Lat, l.Lon = pair[0], pair[1]
	return nil
}

// IsFinite reports whether both coordinates are real numbers.
func (l Location) IsFinite() bool {
	return !math.IsNaN(l.Lat) && !math.IsInf(l.Lat, 0) && !math.IsNaN(l.Lon) && !math.IsInf(l.Lon, 0)
}

func (l Location) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", l.Lat, l.Lon)
}

// Bin is a physical collection bin.
// FillLevelKg may exceed CapacityKg; over-capacity signals urgency.
type Bin struct {
	ID          string   `json:"bin_id"`
	Location    Location `json:"location"`
	CapacityKg  float64  `json:"capacity_kg"`
	FillLevelKg float64  `json:"fill_level_kg"`
}

// FillPercent returns the fill level as a percentage of capacity.
func (b Bin) FillPercent() float64 {
	if b.CapacityKg <= 0 {
		return 0
	}
	return b.FillLevelKg / b.CapacityKg * 100
}

// FeedbackStatus is the collector's verdict on a bin or bag.
type FeedbackStatus string

// Feedback status constants.
const (
	FeedbackValid        FeedbackStatus = "Valid"
	FeedbackContaminated FeedbackStatus = "Contaminated"
)

// FeedbackKind tells whether feedback targets a manifest or a bin.
type FeedbackKind string

// Feedback kinds.
const (
	FeedbackKindManifest FeedbackKind = "manifest"
	FeedbackKindBin      FeedbackKind = "bin"
)

// Feedback is one entry of the collector feedback log. Timestamp is the
// collector's verdict time; RecordedAt is the server clock when the entry was
// appended and orders feedback against classification history.
type Feedback struct {
	Timestamp  time.Time      `json:"timestamp"`
	RecordedAt time.Time      `json:"recorded_at,omitzero"`
	Kind       FeedbackKind   `json:"kind"`
	TargetID   string         `json:"target_id"`
	Status     FeedbackStatus `json:"collector_status"`
}

// ReplayTime is when the entry took effect on the server. Entries written
// before RecordedAt existed fall back to Timestamp.
func (f Feedback) ReplayTime() time.Time {
	if f.RecordedAt.IsZero() {
		return f.Timestamp
	}
	return f.RecordedAt
}

// FeedbackSummary aggregates the feedback log.
type FeedbackSummary struct {
	Total             int     `json:"total_submissions"`
	Valid             int     `json:"valid"`
	Contaminated      int     `json:"contaminated"`
	ContaminationRate float64 `json:"contamination_rate"`
}

// Summarize computes feedback counts and the contamination rate in percent.
func Summarize(log []Feedback) FeedbackSummary {
	var s FeedbackSummary
	for _, f := range log {
		s.Total++
		switch f.Status {
		case FeedbackValid:
			s.Valid++
		case FeedbackContaminated:
			s.Contaminated++
		}
	}
	if s.Total > 0 {
		s.ContaminationRate = float64(s.Contaminated) / float64(s.Total) * 100
	}
	return s
}

// Analytics is a read-only snapshot of feedback and bin state.
type Analytics struct {
	BinStatus   map[string]Bin  `json:"bin_status"`
	FeedbackLog []Feedback      `json:"feedback_log"`
	Summary     FeedbackSummary `json:"summary"`
}
