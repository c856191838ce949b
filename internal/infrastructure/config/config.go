package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full gateway configuration.
type Config struct {
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Indexing  IndexingConfig  `mapstructure:"indexing"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Limits    LimitsConfig    `mapstructure:"limits"`
}

// GatewayConfig controls the HTTP listener.
type GatewayConfig struct {
	BindAddr string `mapstructure:"bind_addr"`
	Mode     string `mapstructure:"mode"` // debug, production
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig selects the persistence adapter. An empty type keeps the
// gateway purely in memory.
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // "", sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

// AIConfig selects the default provider and model for @ai turns.
type AIConfig struct {
	Provider  string             `mapstructure:"provider"` // openai, anthropic, gemini, mock, http-json
	Model     string             `mapstructure:"model"`
	Member    string             `mapstructure:"member"` // member id the AI speaks as
	Providers []ProviderSettings `mapstructure:"providers"`
}

// ProviderSettings configures one upstream provider.
type ProviderSettings struct {
	Name    string `mapstructure:"name"`
	Type    string `mapstructure:"type"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // openai, mock
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Dimension int    `mapstructure:"dimension"`
}

// VectorConfig selects the vector store backend.
type VectorConfig struct {
	Backend   string `mapstructure:"backend"` // memory, lancedb
	Path      string `mapstructure:"path"`    // lancedb data directory
	Dimension int    `mapstructure:"dimension"`
}

// IndexingConfig tunes the background indexing queue.
type IndexingConfig struct {
	QueueCapacity   int           `mapstructure:"queue_capacity"`
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialDelay    time.Duration `mapstructure:"initial_delay"`
	MaxDelay        time.Duration `mapstructure:"max_delay"`
	DelayMultiplier float64       `mapstructure:"delay_multiplier"`
}

// AuthConfig configures JWT issuance and verification.
type AuthConfig struct {
	Secret        string `mapstructure:"secret"`
	Issuer        string `mapstructure:"issuer"`
	Audience      string `mapstructure:"audience"`
	ExpirySeconds int64  `mapstructure:"expiry_seconds"`
}

// LimitsConfig caps concurrent work.
type LimitsConfig struct {
	MaxConcurrentWrites int `mapstructure:"max_concurrent_writes"`
	MaxConnections      int `mapstructure:"max_connections"`
}

var loaded *viper.Viper

// Load reads config.yaml (working directory or ~/.nexis/) with NEXIS_*
// environment overrides. A missing file is fine; defaults apply.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.nexis")
	}

	v.SetEnvPrefix("NEXIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindFlatEnvAliases(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyKeyFallbacks(&cfg)
	loaded = v
	return &cfg, nil
}

// Watch re-reads the config file on change and invokes onChange with the
// fresh config. Invalid updates are dropped. Call after Load.
func Watch(onChange func(*Config)) {
	v := loaded
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := Load()
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.bind_addr", "0.0.0.0:8080")
	v.SetDefault("gateway.mode", "debug")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ai.provider", "mock")
	v.SetDefault("ai.member", "nexis:agent:assistant")
	v.SetDefault("embedding.provider", "mock")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("vector.backend", "memory")
	v.SetDefault("vector.dimension", 1536)
	v.SetDefault("indexing.queue_capacity", 1024)
	v.SetDefault("indexing.max_retries", 3)
	v.SetDefault("indexing.initial_delay", 100*time.Millisecond)
	v.SetDefault("indexing.max_delay", time.Second)
	v.SetDefault("indexing.delay_multiplier", 2.0)
	v.SetDefault("auth.issuer", "nexis")
	v.SetDefault("auth.audience", "nexis-gateway")
	v.SetDefault("auth.expiry_seconds", 3600)
	v.SetDefault("limits.max_concurrent_writes", 2048)
	v.SetDefault("limits.max_connections", 10000)
}

// bindFlatEnvAliases keeps the historical flat variable names working
// alongside the NEXIS_<SECTION>_<KEY> forms.
func bindFlatEnvAliases(v *viper.Viper) {
	_ = v.BindEnv("gateway.bind_addr", "NEXIS_BIND_ADDR")
	_ = v.BindEnv("ai.provider", "NEXIS_AI_PROVIDER")
	_ = v.BindEnv("ai.model", "NEXIS_AI_MODEL")
	_ = v.BindEnv("ai.member", "NEXIS_AI_MEMBER")
	_ = v.BindEnv("embedding.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("auth.secret", "NEXIS_AUTH_SECRET")
}

// APIKeyFromEnv returns the conventional environment API key for a
// provider type, or "" for types without one.
func APIKeyFromEnv(providerType string) string {
	switch providerType {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return ""
	}
}

// applyKeyFallbacks fills provider API keys from the conventional
// per-provider environment variables when the config leaves them empty.
func applyKeyFallbacks(cfg *Config) {
	for i := range cfg.AI.Providers {
		p := &cfg.AI.Providers[i]
		if p.APIKey == "" {
			p.APIKey = APIKeyFromEnv(p.Type)
		}
	}
}
