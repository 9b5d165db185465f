package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"carechat/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type AuthConfig struct {
	HMACSecret string        `yaml:"hmac_secret"`
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AIConfig selects and tunes the upstream completion provider.
// The recipe mode produces longer structured output, so it gets its own
// timeout and token budget.
type AIConfig struct {
	Provider        string        `yaml:"provider"` // openai|gemini|mock
	OpenAIKey       string        `yaml:"openai_key"`
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	Model           string        `yaml:"model"`
	Temperature     float64       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	RecipeTimeout   time.Duration `yaml:"recipe_timeout"`
	MaxTokens       int64         `yaml:"max_tokens"`
	RecipeMaxTokens int64         `yaml:"recipe_max_tokens"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // max concurrent upstream calls
}

// TimeoutFor returns the per-mode call deadline.
func (c AIConfig) TimeoutFor(m model.Mode) time.Duration {
	if m == model.ModeRecipe {
		return c.RecipeTimeout
	}
	return c.Timeout
}

// MaxTokensFor returns the per-mode completion budget.
func (c AIConfig) MaxTokensFor(m model.Mode) int64 {
	if m == model.ModeRecipe {
		return c.RecipeMaxTokens
	}
	return c.MaxTokens
}

type LimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type RateLimitConfig struct {
	Send LimitConfig `yaml:"send"`
	List LimitConfig `yaml:"list"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"` // 32 bytes enables encryption-at-rest
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Security  SecurityConfig  `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file, applies env overrides for secrets, fills
// defaults and validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Secrets may come from the environment (see .env via godotenv in main).
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.GeminiKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("AUTH_HMAC_SECRET"); v != "" {
		cfg.Auth.HMACSecret = v
	}

	applyDefaults(&cfg)

	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Auth.HMACSecret == "" {
		return nil, errors.New("auth.hmac_secret is required")
	}
	switch cfg.AI.Provider {
	case "openai", "gemini", "mock":
	default:
		return nil, fmt.Errorf("ai.provider must be openai, gemini or mock, got %q", cfg.AI.Provider)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "session"
	}
	if cfg.Auth.TTL <= 0 {
		cfg.Auth.TTL = 24 * time.Hour
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "mock"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4.1-mini"
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.4
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 30 * time.Second
	}
	if cfg.AI.RecipeTimeout <= 0 {
		cfg.AI.RecipeTimeout = 60 * time.Second
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 700
	}
	if cfg.AI.RecipeMaxTokens <= 0 {
		cfg.AI.RecipeMaxTokens = 1200
	}
	if cfg.AI.RetryDelay <= 0 {
		cfg.AI.RetryDelay = 500 * time.Millisecond
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.RateLimit.Send.Limit <= 0 {
		cfg.RateLimit.Send.Limit = 30
	}
	if cfg.RateLimit.Send.Window <= 0 {
		cfg.RateLimit.Send.Window = time.Minute
	}
	if cfg.RateLimit.List.Limit <= 0 {
		cfg.RateLimit.List.Limit = 60
	}
	if cfg.RateLimit.List.Window <= 0 {
		cfg.RateLimit.List.Window = time.Minute
	}
}
