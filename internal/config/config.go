// Package config provides configuration loading for the manual-to-Markdown pipeline.
// Supports YAML files, .env files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spherical/manual-rag/internal/domain"
)

// Config holds all configuration for a processing run.
type Config struct {
	Processing    ProcessingConfig    `yaml:"processing"`
	Provider      ProviderConfig      `yaml:"provider"`
	Cache         CacheConfig         `yaml:"cache"`
	Output        OutputConfig        `yaml:"output"`
	Events        EventsConfig        `yaml:"events"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ProcessingConfig is the pipeline configuration surface.
type ProcessingConfig struct {
	ImageDPI             int             `yaml:"image_dpi"`
	HighQualityDPI       int             `yaml:"high_quality_dpi"`
	MinImageSize         int             `yaml:"min_image_size"`
	PageAsImageThreshold float64         `yaml:"page_as_image_threshold"`
	Language             domain.Language `yaml:"language"`
	MaxRetries           int             `yaml:"max_retries"`
	RetryDelay           time.Duration   `yaml:"retry_delay"`
	MaxBackoff           time.Duration   `yaml:"max_backoff"`
	TableExtraction      bool            `yaml:"table_extraction"`
	TextOnly             bool            `yaml:"text_only"`
	MaxConcurrentPages   int             `yaml:"max_concurrent_pages"`
	MaxConcurrentImages  int             `yaml:"max_concurrent_images"`
	DetectTrash          bool            `yaml:"detect_trash"`
	Quality              domain.Quality  `yaml:"quality"`
	// StartPage is 0-indexed and inclusive.
	StartPage int `yaml:"start_page"`
	// EndPage is 0-indexed and exclusive; 0 means the last page.
	EndPage int `yaml:"end_page"`
}

// ProviderConfig selects the vision backend.
type ProviderConfig struct {
	Name       string        `yaml:"name"`
	Model      string        `yaml:"model"`
	SkipCheck  bool          `yaml:"skip_check"`
	OllamaHost string        `yaml:"ollama_host"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// CacheConfig holds description cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // none, memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// OutputConfig holds artifact locations.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// EventsConfig controls publishing of progress events to Redis for external consumers.
type EventsConfig struct {
	RedisChannel string `yaml:"redis_channel"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads .env files, an optional YAML file, and environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Processing: ProcessingConfig{
			ImageDPI:             150,
			HighQualityDPI:       300,
			MinImageSize:         100,
			PageAsImageThreshold: 0.5,
			Language:             domain.LanguageThai,
			MaxRetries:           3,
			RetryDelay:           2 * time.Second,
			MaxBackoff:           30 * time.Second,
			TableExtraction:      true,
			TextOnly:             false,
			MaxConcurrentPages:   4,
			MaxConcurrentImages:  5,
			DetectTrash:          true,
			Quality:              domain.QualityStandard,
		},
		Provider: ProviderConfig{
			Name:       "ollama",
			OllamaHost: "http://localhost:11434",
			Timeout:    5 * time.Minute,
		},
		Cache: CacheConfig{
			Driver:     "none",
			TTL:        24 * time.Hour,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
				Prefix:   "manual-rag:",
			},
		},
		Output: OutputConfig{
			Dir: "output",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "console",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	p := c.Processing

	if _, err := domain.ParseLanguage(string(p.Language)); err != nil {
		return err
	}
	if _, err := domain.ParseQuality(string(p.Quality)); err != nil {
		return err
	}
	if p.ImageDPI < 36 || p.ImageDPI > 1200 {
		return domain.ConfigError(fmt.Sprintf("image_dpi must be between 36 and 1200, got %d", p.ImageDPI), nil)
	}
	if p.HighQualityDPI < p.ImageDPI {
		return domain.ConfigError("high_quality_dpi must not be below image_dpi", nil)
	}
	if p.PageAsImageThreshold < 0 || p.PageAsImageThreshold > 1 {
		return domain.ConfigError(fmt.Sprintf("page_as_image_threshold must be within [0,1], got %v", p.PageAsImageThreshold), nil)
	}
	if p.MinImageSize < 0 {
		return domain.ConfigError("min_image_size must not be negative", nil)
	}
	if p.MaxRetries < 1 {
		return domain.ConfigError("max_retries must be at least 1", nil)
	}
	if p.RetryDelay < 0 || p.MaxBackoff < p.RetryDelay {
		return domain.ConfigError("retry_delay must be non-negative and not exceed max_backoff", nil)
	}
	if p.MaxConcurrentPages < 1 || p.MaxConcurrentImages < 1 {
		return domain.ConfigError("concurrency limits must be at least 1", nil)
	}
	if p.StartPage < 0 || p.EndPage < 0 {
		return domain.ConfigError("page range must not be negative", nil)
	}
	if p.EndPage != 0 && p.EndPage <= p.StartPage {
		return domain.ConfigError(fmt.Sprintf("end_page %d must be greater than start_page %d", p.EndPage, p.StartPage), nil)
	}

	switch c.Cache.Driver {
	case "none", "memory", "redis":
	default:
		return domain.ConfigError(fmt.Sprintf("invalid cache driver: %s", c.Cache.Driver), nil)
	}

	if !p.TextOnly && strings.TrimSpace(c.Provider.Name) == "" {
		return domain.ConfigError("vision provider required when text_only is false", nil)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MANUAL_RAG_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}

	if v := os.Getenv("MANUAL_RAG_MODEL"); v != "" {
		cfg.Provider.Model = v
	}

	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		cfg.Provider.OllamaHost = v
	}

	if v := os.Getenv("MANUAL_RAG_LANG"); v != "" {
		cfg.Processing.Language = domain.Language(strings.ToLower(v))
	}

	if v := os.Getenv("MANUAL_RAG_QUALITY"); v != "" {
		cfg.Processing.Quality = domain.Quality(strings.ToLower(v))
	}

	if v := os.Getenv("MANUAL_RAG_DPI"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Processing.ImageDPI = n
		}
	}

	if v := os.Getenv("MANUAL_RAG_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Processing.MaxConcurrentPages = n
		}
	}

	if v := os.Getenv("MANUAL_RAG_IMAGE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Processing.MaxConcurrentImages = n
		}
	}

	if v := os.Getenv("MANUAL_RAG_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Processing.MaxRetries = n
		}
	}

	if v := os.Getenv("MANUAL_RAG_RETRY_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Processing.RetryDelay = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("MANUAL_RAG_OUTPUT"); v != "" {
		cfg.Output.Dir = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
