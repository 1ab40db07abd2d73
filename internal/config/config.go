package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vilniusrent/valuation-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Nominatim   NominatimConfig   `yaml:"nominatim" mapstructure:"nominatim"`
	Predict     PredictConfig     `yaml:"predict" mapstructure:"predict"`
	Overrides   OverridesConfig   `yaml:"overrides" mapstructure:"overrides"`
	Comparables ComparablesConfig `yaml:"comparables" mapstructure:"comparables"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// NominatimConfig configures the geocoding client.
type NominatimConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxResults    int     `yaml:"max_results" mapstructure:"max_results"`
	CacheTTLHours int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// PredictConfig configures the rent prediction service client.
type PredictConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// OverridesConfig configures district override persistence.
type OverridesConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// ComparablesConfig configures comparable listing selection.
type ComparablesConfig struct {
	TopN           int `yaml:"top_n" mapstructure:"top_n"`
	CandidateLimit int `yaml:"candidate_limit" mapstructure:"candidate_limit"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port               int    `yaml:"port" mapstructure:"port"`
	PruneSchedule      string `yaml:"prune_schedule" mapstructure:"prune_schedule"`
	ValuationRetention string `yaml:"valuation_retention" mapstructure:"valuation_retention"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VALUATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "valuation.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.prune_schedule", "0 3 * * *")
	v.SetDefault("server.valuation_retention", "720h")
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "vilniusrent-valuation-cli/1.0")
	v.SetDefault("nominatim.rate_limit", 1.0)
	v.SetDefault("nominatim.timeout_secs", 15)
	v.SetDefault("nominatim.max_results", 5)
	v.SetDefault("nominatim.cache_ttl_hours", 1)
	v.SetDefault("predict.base_url", "http://localhost:8000")
	v.SetDefault("predict.timeout_secs", 30)
	v.SetDefault("predict.max_retries", 2)
	v.SetDefault("overrides.backend", "file")
	v.SetDefault("overrides.path", "district_overrides.json")
	v.SetDefault("comparables.top_n", 4)
	v.SetDefault("comparables.candidate_limit", 200)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a given run mode requires. Modes correspond to
// top-level commands: "value", "serve", "import".
func (c *Config) Validate(mode string) error {
	var problems []string

	checkStore := func() {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}
	checkComparables := func() {
		if c.Comparables.TopN < 1 || c.Comparables.TopN > 50 {
			problems = append(problems, "comparables.top_n must be between 1 and 50")
		}
		if c.Comparables.CandidateLimit < 1 {
			problems = append(problems, "comparables.candidate_limit must be > 0")
		}
	}

	switch mode {
	case "value":
		checkStore()
		checkComparables()
		if c.Nominatim.BaseURL == "" {
			problems = append(problems, "nominatim.base_url is required")
		}
		if c.Predict.BaseURL == "" {
			problems = append(problems, "predict.base_url is required")
		}
	case "serve":
		checkStore()
		checkComparables()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Predict.BaseURL == "" {
			problems = append(problems, "predict.base_url is required")
		}
	case "import":
		checkStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
