package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Ads       AdsConfig       `yaml:"ads" mapstructure:"ads"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// EngineConfig tunes the discovery loop.
type EngineConfig struct {
	BatchSize        int     `yaml:"batch_size" mapstructure:"batch_size"`
	MinResults       int     `yaml:"min_results" mapstructure:"min_results"`
	MaxExpansions    int     `yaml:"max_expansions" mapstructure:"max_expansions"`
	GrowthFactor     float64 `yaml:"growth_factor" mapstructure:"growth_factor"`
	MaxRadiusMeters  float64 `yaml:"max_radius_meters" mapstructure:"max_radius_meters"`
	UpstreamTimeout  int     `yaml:"upstream_timeout_secs" mapstructure:"upstream_timeout_secs"`
	MoodConcurrency  int     `yaml:"mood_concurrency" mapstructure:"mood_concurrency"`
	CacheTTLMinutes  int     `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	PoolTTLMinutes   int     `yaml:"pool_ttl_minutes" mapstructure:"pool_ttl_minutes"`
	RetryMaxAttempts int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
}

// GoogleConfig holds Google Places API settings.
type GoogleConfig struct {
	Key     string  `yaml:"key" mapstructure:"key"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	QPS     float64 `yaml:"qps" mapstructure:"qps"`
}

// AnthropicConfig holds Anthropic API settings for mood analysis.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AdsConfig configures the advertised-places source.
type AdsConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// StoreConfig configures the database backend. An empty driver disables
// persistence; the engine then runs purely in memory.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("WHIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("engine.batch_size", 4)
	v.SetDefault("engine.min_results", 4)
	v.SetDefault("engine.max_expansions", 3)
	v.SetDefault("engine.growth_factor", 2.0)
	v.SetDefault("engine.max_radius_meters", 20000)
	v.SetDefault("engine.upstream_timeout_secs", 10)
	v.SetDefault("engine.mood_concurrency", 4)
	v.SetDefault("engine.cache_ttl_minutes", 15)
	v.SetDefault("engine.pool_ttl_minutes", 30)
	v.SetDefault("engine.retry_max_attempts", 3)
	v.SetDefault("google.key", "")
	v.SetDefault("google.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("google.qps", 10)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("ads.file", "")
	v.SetDefault("store.driver", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)

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
