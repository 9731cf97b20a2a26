package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/llm"
	"github.com/Veraticus/wastewise/internal/model"
)

// MockOracle is a test implementation of the Oracle interface.
// It returns deterministic classifications based on keywords in the item.
type MockOracle struct {
	failures map[string]error
	panics   map[string]bool
	calls    []MockOracleCall
	delay    time.Duration
	mu       sync.Mutex
}

// MockOracleCall records details of a classification request.
type MockOracleCall struct {
	Error  error
	Item   string
	Result llm.ParsedClassification
}

// NewMockOracle creates a new mock oracle.
func NewMockOracle() *MockOracle {
	return &MockOracle{
		failures: make(map[string]error),
		panics:   make(map[string]bool),
	}
}

// FailOn makes the oracle fail for item.
func (m *MockOracle) FailOn(item string, err error) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[item] = err
	return m
}

// PanicOn makes the oracle panic for item.
func (m *MockOracle) PanicOn(item string) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics[item] = true
	return m
}

// WithDelay makes every call block for d or until the context ends.
func (m *MockOracle) WithDelay(d time.Duration) *MockOracle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// Classify provides deterministic classifications based on the item text.
func (m *MockOracle) Classify(ctx context.Context, item string) (llm.ParsedClassification, error) {
	m.mu.Lock()
	failure, fails := m.failures[item]
	panics := m.panics[item]
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			failure, fails = fmt.Errorf("%w: %w", common.ErrOracleFailure, ctx.Err()), true
		}
	}
	if panics {
		panic("mock oracle exploded on " + item)
	}

	var result llm.ParsedClassification
	if !fails {
		result = mockClassification(item)
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockOracleCall{Item: item, Result: result, Error: failure})
	m.mu.Unlock()

	if fails {
		return llm.ParsedClassification{}, failure
	}
	return result, nil
}

func mockClassification(item string) llm.ParsedClassification {
	lower := strings.ToLower(item)
	switch {
	case strings.Contains(lower, "bottle") || strings.Contains(lower, "tray"):
		return llm.ParsedClassification{Category: model.CategoryPET, Stream: model.StreamRecyclable,
			Recyclability: model.RecyclabilityHigh, WeightKg: 0.05, HasWeight: true}
	case strings.Contains(lower, "jar"):
		return llm.ParsedClassification{Category: model.CategoryGlass, Stream: model.StreamRecyclable,
			Recyclability: model.RecyclabilityHigh, WeightKg: 0.3, HasWeight: true}
	case strings.Contains(lower, "peel") || strings.Contains(lower, "leaf") || strings.Contains(lower, "fruit"):
		return llm.ParsedClassification{Category: model.CategoryCompost, Stream: model.StreamWet,
			Recyclability: model.RecyclabilityNone, WeightKg: 0.1, HasWeight: true}
	case strings.Contains(lower, "wrapper") || strings.Contains(lower, "pouch"):
		return llm.ParsedClassification{Category: model.CategoryMLP, Stream: model.StreamDry,
			Recyclability: model.RecyclabilityLow}
	default:
		return llm.ParsedClassification{Category: model.CategoryOther, Stream: model.StreamDry,
			Recyclability: model.RecyclabilityLow, WeightKg: 0.02, HasWeight: true}
	}
}

// GetCalls returns all recorded calls for verification in tests.
func (m *MockOracle) GetCalls() []MockOracleCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]MockOracleCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of completed Classify calls.
func (m *MockOracle) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
