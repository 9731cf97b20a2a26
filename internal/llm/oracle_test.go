package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
)

type stubClient struct {
	err     error
	reply   string
	delay   time.Duration
	prompts []string
	mu      sync.Mutex
}

func (s *stubClient) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func (s *stubClient) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func TestOracleClassify(t *testing.T) {
	client := &stubClient{reply: `{"category":"Paper","stream":"Dry","recyclability":"High","weight_kg":0.2}`}
	oracle := NewOracleWithClient(client, Config{}, nil)
	defer oracle.Close()

	got, err := oracle.Classify(context.Background(), "cardboard tube")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryPaper, got.Category)
	assert.Contains(t, client.prompts[0], `Input: "cardboard tube"`)
}

func TestOracleFailures(t *testing.T) {
	tests := map[string]*stubClient{
		"transport error": {err: errors.New("connection refused")},
		"empty reply":     {reply: "   "},
		"garbage reply":   {reply: "no idea"},
	}
	for name, client := range tests {
		t.Run(name, func(t *testing.T) {
			oracle := NewOracleWithClient(client, Config{}, nil)
			defer oracle.Close()

			_, err := oracle.Classify(context.Background(), "thing")
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrOracleFailure)
		})
	}
}

func TestOracleTimeout(t *testing.T) {
	client := &stubClient{reply: "{}", delay: time.Second}
	oracle := NewOracleWithClient(client, Config{Timeout: 20 * time.Millisecond}, nil)
	defer oracle.Close()

	_, err := oracle.Classify(context.Background(), "slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrOracleFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOracleCache(t *testing.T) {
	client := &stubClient{reply: `{"category":"Metal","stream":"Recyclable","recyclability":"High"}`}
	oracle := NewOracleWithClient(client, Config{CacheTTL: time.Minute}, nil)
	defer oracle.Close()

	for _, item := range []string{"Tin Lid", "tin lid ", "TIN LID"} {
		_, err := oracle.Classify(context.Background(), item)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, client.calls())
	assert.Equal(t, 1, oracle.cache.size())
}

func TestOracleDoesNotCacheFailures(t *testing.T) {
	client := &stubClient{reply: "nope"}
	oracle := NewOracleWithClient(client, Config{CacheTTL: time.Minute}, nil)
	defer oracle.Close()

	_, _ = oracle.Classify(context.Background(), "x")
	_, _ = oracle.Classify(context.Background(), "x")
	assert.Equal(t, 2, client.calls())
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(`odd "quoted" item`)
	assert.Contains(t, p, `"weight_kg"`)
	assert.Contains(t, p, `Input: "odd \"quoted\" item"`)
}

type flakyClient struct {
	reply    string
	failures int
	calls    int
	mu       sync.Mutex
}

func (f *flakyClient) Generate(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("connection reset")
	}
	return f.reply, nil
}

func TestOracleRetriesTransientErrors(t *testing.T) {
	client := &flakyClient{reply: `{"category":"Glass","stream":"Recyclable","recyclability":"High"}`, failures: 1}
	oracle := NewOracleWithClient(client, Config{MaxRetries: 2}, nil)
	defer oracle.Close()

	got, err := oracle.Classify(context.Background(), "jar")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryGlass, got.Category)
	assert.Equal(t, 2, client.calls)
}

func TestOracleDoesNotRetryPermanentErrors(t *testing.T) {
	client := &stubClient{err: common.Permanent(errors.New("401 unauthorized"))}
	oracle := NewOracleWithClient(client, Config{MaxRetries: 3}, nil)
	defer oracle.Close()

	_, err := oracle.Classify(context.Background(), "jar")
	assert.ErrorIs(t, err, common.ErrOracleFailure)
	assert.Equal(t, 1, client.calls())
}
