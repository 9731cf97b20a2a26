package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/wastewise/internal/common"
)

const promptTemplate = `For each input product, respond ONLY in valid JSON.
Do not add extra text or explanation.
Schema:
{
  "category": "<PET | Glass | Paper | Metal | MLP | Compost | Other>",
  "stream": "<Dry | Wet | Recyclable | None>",
  "recyclability": "<High | Moderate | Low | None>",
  "weight_kg": "<Estimated weight in kilograms as a float>"
}
Input: %q`

// BuildPrompt renders the classification prompt for a single item.
func BuildPrompt(item string) string {
	return fmt.Sprintf(promptTemplate, item)
}

// Oracle classifies items the knowledge graph does not know by asking an LLM.
// It is safe for concurrent use.
type Oracle struct {
	client      Client
	cache       *classificationCache
	rateLimiter *rateLimiter
	logger      *slog.Logger
	retry       common.RetryOptions
	timeout     time.Duration
}

// NewOracle builds the configured provider client and wraps it in an Oracle.
func NewOracle(cfg Config, logger *slog.Logger) (*Oracle, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewOracleWithClient(client, cfg, logger), nil
}

// NewOracleWithClient wraps an existing client. Used by tests and alternative providers.
func NewOracleWithClient(client Client, cfg Config, logger *slog.Logger) *Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Oracle{
		client:      client,
		cache:       newClassificationCache(cfg.CacheTTL),
		rateLimiter: newRateLimiter(cfg.RateLimit),
		logger:      logger,
		timeout:     timeout,
		retry: common.RetryOptions{
			MaxAttempts:  1 + max(cfg.MaxRetries, 0),
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
	}
}

// Classify asks the model about item. Every failure, including timeouts, wraps
// common.ErrOracleFailure; callers degrade to a fallback record.
func (o *Oracle) Classify(ctx context.Context, item string) (ParsedClassification, error) {
	if cached, ok := o.cache.get(item); ok {
		o.logger.Debug("oracle cache hit", "item", item)
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.rateLimiter.wait(ctx); err != nil {
		return ParsedClassification{}, fmt.Errorf("%w: %w", common.ErrOracleFailure, err)
	}

	start := time.Now()
	prompt := BuildPrompt(item)
	var reply string
	err := common.WithRetry(ctx, func() error {
		var genErr error
		reply, genErr = o.client.Generate(ctx, prompt)
		return genErr
	}, o.retry)
	if err != nil {
		return ParsedClassification{}, fmt.Errorf("%w: %w", common.ErrOracleFailure, err)
	}
	if strings.TrimSpace(reply) == "" {
		return ParsedClassification{}, fmt.Errorf("%w: empty response", common.ErrOracleFailure)
	}

	parsed, err := ParseClassification(reply)
	if err != nil {
		return ParsedClassification{}, err
	}

	o.logger.Debug("oracle classified item",
		"item", item,
		"category", parsed.Category,
		"stream", parsed.Stream,
		"duration", time.Since(start))

	o.cache.set(item, parsed)
	return parsed, nil
}

// Close stops the cache janitor.
func (o *Oracle) Close() {
	o.cache.Close()
}
