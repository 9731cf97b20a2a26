package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/llm"
	"github.com/Veraticus/wastewise/internal/model"
)

// EnvPrefix is the prefix for environment overrides, e.g. WASTEWISE_ORACLE_MODEL.
const EnvPrefix = "WASTEWISE"

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config is the validated application configuration.
type Config struct {
	Logging   LoggingConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Knowledge KnowledgeConfig
	Oracle    OracleConfig
	Bins      []model.Bin
	Route     RouteConfig
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig configures the SQLite backend.
type DatabaseConfig struct {
	Path   string
	Driver string
}

// StorageConfig selects the durable backend.
type StorageConfig struct {
	Backend string
	Dir     string
}

// KnowledgeConfig locates the knowledge graph file.
type KnowledgeConfig struct {
	Path  string
	Watch bool
}

// OracleConfig configures the LLM oracle.
type OracleConfig struct {
	Provider       string
	Model          string
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	CacheTTL       time.Duration
	Temperature    float64
	MaxConcurrency int
	MaxRetries     int
	RateLimit      int
	MaxTokens      int
	Enabled        bool
}

// RouteConfig configures pickup routing.
type RouteConfig struct {
	Depot     model.Location
	Threshold float64
	Improve   bool
}

type binConfig struct {
	ID         string    `mapstructure:"id"`
	Location   []float64 `mapstructure:"location"`
	CapacityKg float64   `mapstructure:"capacity_kg"`
	FillKg     float64   `mapstructure:"fill_level_kg"`
}

// DefaultBins are the bins of the reference deployment.
func DefaultBins() []model.Bin {
	return []model.Bin{
		{ID: "bin-A", CapacityKg: 25, Location: model.Location{Lat: 40.71, Lon: -74.00}},
		{ID: "bin-B", CapacityKg: 25, Location: model.Location{Lat: 34.05, Lon: -118.24}},
		{ID: "bin-C", CapacityKg: 50, Location: model.Location{Lat: 41.87, Lon: -87.62}},
		{ID: "bin-D", CapacityKg: 50, Location: model.Location{Lat: 29.76, Lon: -95.36}},
	}
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.path", DataDir+"/wastewise.db")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.dir", DataDir)

	v.SetDefault("knowledge.path", "")
	v.SetDefault("knowledge.watch", false)

	v.SetDefault("oracle.enabled", true)
	v.SetDefault("oracle.provider", "ollama")
	v.SetDefault("oracle.timeout", 30*time.Second)
	v.SetDefault("oracle.max_concurrency", 8)
	v.SetDefault("oracle.max_retries", 0)
	v.SetDefault("oracle.rate_limit", 0)
	v.SetDefault("oracle.cache_ttl", time.Hour)
	v.SetDefault("oracle.temperature", 0.0)
	v.SetDefault("oracle.max_tokens", 150)

	v.SetDefault("route.depot", []float64{40.71, -74.00})
	v.SetDefault("route.threshold", 75.0)
	v.SetDefault("route.improve", true)
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load builds a validated Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: DatabaseConfig{
			Path:   ExpandPath(v.GetString("database.path")),
			Driver: v.GetString("database.driver"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("storage.backend")),
			Dir:     ExpandPath(v.GetString("storage.dir")),
		},
		Knowledge: KnowledgeConfig{
			Path:  ExpandPath(v.GetString("knowledge.path")),
			Watch: v.GetBool("knowledge.watch"),
		},
		Oracle: OracleConfig{
			Enabled:        v.GetBool("oracle.enabled"),
			Provider:       strings.ToLower(v.GetString("oracle.provider")),
			Model:          v.GetString("oracle.model"),
			BaseURL:        v.GetString("oracle.base_url"),
			APIKey:         v.GetString("oracle.api_key"),
			Timeout:        v.GetDuration("oracle.timeout"),
			CacheTTL:       v.GetDuration("oracle.cache_ttl"),
			Temperature:    v.GetFloat64("oracle.temperature"),
			MaxConcurrency: v.GetInt("oracle.max_concurrency"),
			MaxRetries:     v.GetInt("oracle.max_retries"),
			RateLimit:      v.GetInt("oracle.rate_limit"),
			MaxTokens:      v.GetInt("oracle.max_tokens"),
		},
		Route: RouteConfig{
			Threshold: v.GetFloat64("route.threshold"),
			Improve:   v.GetBool("route.improve"),
		},
	}

	if cfg.Oracle.APIKey == "" {
		switch cfg.Oracle.Provider {
		case "openai":
			cfg.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			cfg.Oracle.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	var depot []float64
	if err := v.UnmarshalKey("route.depot", &depot); err != nil {
		return nil, fmt.Errorf("%w: route.depot: %w", common.ErrInvalidConfig, err)
	}
	loc, err := location(depot, "route.depot")
	if err != nil {
		return nil, err
	}
	cfg.Route.Depot = loc

	if cfg.Bins, err = loadBins(v); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadBins(v *viper.Viper) ([]model.Bin, error) {
	if !v.IsSet("bins") {
		return DefaultBins(), nil
	}

	var raw []binConfig
	if err := v.UnmarshalKey("bins", &raw); err != nil {
		return nil, fmt.Errorf("%w: bins: %w", common.ErrInvalidConfig, err)
	}

	bins := make([]model.Bin, 0, len(raw))
	for i, b := range raw {
		loc, err := location(b.Location, fmt.Sprintf("bins[%d].location", i))
		if err != nil {
			return nil, err
		}
		bins = append(bins, model.Bin{ID: b.ID, CapacityKg: b.CapacityKg, FillLevelKg: b.FillKg, Location: loc})
	}
	return bins, nil
}

func location(pair []float64, key string) (model.Location, error) {
	if len(pair) != 2 {
		return model.Location{}, fmt.Errorf("%w: %s must be [lat, lon]", common.ErrInvalidConfig, key)
	}
	loc := model.Location{Lat: pair[0], Lon: pair[1]}
	if !loc.IsFinite() {
		return model.Location{}, fmt.Errorf("%w: %s must be finite", common.ErrInvalidConfig, key)
	}
	return loc, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
		}
		switch c.Database.Driver {
		case "sqlite3", "sqlite":
		default:
			return fmt.Errorf("%w: database.driver must be sqlite3 or sqlite, got %q", common.ErrInvalidConfig, c.Database.Driver)
		}
	case BackendFile:
		if c.Storage.Dir == "" {
			return fmt.Errorf("%w: storage.dir", common.ErrMissingConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: storage.backend must be sqlite, file or memory, got %q", common.ErrInvalidConfig, c.Storage.Backend)
	}

	if c.Knowledge.Watch && c.Knowledge.Path == "" {
		return fmt.Errorf("%w: knowledge.watch needs knowledge.path", common.ErrInvalidConfig)
	}
	if c.Route.Threshold <= 0 || c.Route.Threshold > 100 {
		return fmt.Errorf("%w: route.threshold must be in (0, 100], got %v", common.ErrInvalidConfig, c.Route.Threshold)
	}
	if c.Oracle.MaxConcurrency <= 0 {
		return fmt.Errorf("%w: oracle.max_concurrency must be positive", common.ErrInvalidConfig)
	}
	if c.Oracle.MaxRetries < 0 {
		return fmt.Errorf("%w: oracle.max_retries must not be negative", common.ErrInvalidConfig)
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("%w: oracle.timeout must be positive", common.ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Bins))
	for _, b := range c.Bins {
		switch {
		case strings.TrimSpace(b.ID) == "":
			return fmt.Errorf("%w: bin without id", common.ErrInvalidConfig)
		case seen[b.ID]:
			return fmt.Errorf("%w: duplicate bin id %s", common.ErrInvalidConfig, b.ID)
		case b.CapacityKg <= 0:
			return fmt.Errorf("%w: bin %s capacity_kg must be positive", common.ErrInvalidConfig, b.ID)
		}
		seen[b.ID] = true
	}
	return nil
}

// LLMConfig maps the oracle section onto the llm client configuration.
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider:       c.Oracle.Provider,
		APIKey:         c.Oracle.APIKey,
		BaseURL:        c.Oracle.BaseURL,
		Model:          c.Oracle.Model,
		Timeout:        c.Oracle.Timeout,
		CacheTTL:       c.Oracle.CacheTTL,
		RateLimit:      c.Oracle.RateLimit,
		MaxConcurrency: c.Oracle.MaxConcurrency,
		MaxRetries:     c.Oracle.MaxRetries,
		Temperature:    c.Oracle.Temperature,
		MaxTokens:      c.Oracle.MaxTokens,
	}
}
