// Package config loads service configuration from an optional YAML file and
// the environment. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration
type Config struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	LogLevel       string   `yaml:"log_level"`

	AI    AIConfig    `yaml:"ai"`
	Cache CacheConfig `yaml:"cache"`
}

// AIConfig configures the LLM providers and the candidate extractor.
type AIConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Providers    []string `yaml:"providers"`
	OpenAIKey    string   `yaml:"openai_api_key"`
	OpenAIModel  string   `yaml:"openai_model"`
	OpenAIURL    string   `yaml:"openai_base_url"`
	GLMKey       string   `yaml:"glm_api_key"`
	NVIDIAKey    string   `yaml:"nvidia_api_key"`
	AnthropicKey string   `yaml:"anthropic_api_key"`
	OllamaURL    string   `yaml:"ollama_url"`

	Concurrency int           `yaml:"concurrency"`
	RatePerSec  float64       `yaml:"rate_per_sec"`
	Burst       int           `yaml:"burst"`
	Timeout     time.Duration `yaml:"timeout"`
}

// CacheConfig configures the parse cache.
type CacheConfig struct {
	RedisAddress string        `yaml:"redis_address"`
	TTL          time.Duration `yaml:"ttl"`
	MaxCost      int64         `yaml:"max_cost"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:           8787,
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
		AI: AIConfig{
			Enabled:     true,
			Providers:   []string{"openai", "glm", "nvidia", "anthropic", "ollama"},
			OpenAIModel: "gpt-4o-mini",
			Concurrency: 4,
			RatePerSec:  3,
			Burst:       5,
			Timeout:     20 * time.Second,
		},
		Cache: CacheConfig{
			TTL:     5 * time.Minute,
			MaxCost: 64 << 20,
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvInt("PORT", c.Port)
	c.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.AI.Enabled = getEnvBool("AI_ENABLED", c.AI.Enabled)
	c.AI.Providers = getEnvList("AI_PROVIDERS", c.AI.Providers)
	c.AI.OpenAIKey = getEnv("OPENAI_API_KEY", c.AI.OpenAIKey)
	c.AI.OpenAIModel = getEnv("OPENAI_MODEL", c.AI.OpenAIModel)
	c.AI.OpenAIURL = getEnv("OPENAI_BASE_URL", c.AI.OpenAIURL)
	c.AI.GLMKey = getEnv("GLM_API_KEY", c.AI.GLMKey)
	c.AI.NVIDIAKey = getEnv("NVIDIA_API_KEY", c.AI.NVIDIAKey)
	c.AI.AnthropicKey = getEnv("ANTHROPIC_API_KEY", c.AI.AnthropicKey)
	c.AI.OllamaURL = getEnv("OLLAMA_URL", c.AI.OllamaURL)
	c.AI.Concurrency = getEnvInt("AI_CONCURRENCY", c.AI.Concurrency)
	c.AI.RatePerSec = getEnvFloat("AI_RATE_PER_SEC", c.AI.RatePerSec)
	c.AI.Burst = getEnvInt("AI_BURST", c.AI.Burst)
	c.AI.Timeout = getEnvDuration("AI_TIMEOUT", c.AI.Timeout)

	c.Cache.RedisAddress = getEnv("REDIS_ADDRESS", c.Cache.RedisAddress)
	c.Cache.TTL = getEnvDuration("PARSE_CACHE_TTL", c.Cache.TTL)
	c.Cache.MaxCost = int64(getEnvInt("PARSE_CACHE_MAX_COST", int(c.Cache.MaxCost)))
}

// Validate rejects values the service cannot start with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AI.Concurrency < 1 {
		return fmt.Errorf("ai concurrency must be positive, got %d", c.AI.Concurrency)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
