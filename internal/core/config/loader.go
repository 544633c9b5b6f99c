package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/invoker/internal/resilience/backoff"
	"github.com/vietddude/invoker/internal/resilience/diagnostics"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables and applying
// defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	def := backoff.DefaultConfig
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = def.MaxAttempts
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = def.BaseDelay
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = def.MaxDelay
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = def.Multiplier
	}

	if cfg.Diagnostics.Capacity == 0 {
		cfg.Diagnostics.Capacity = diagnostics.DefaultCapacity
	}
	if cfg.Diagnostics.Recent == 0 {
		cfg.Diagnostics.Recent = diagnostics.DefaultRecentLimit
	}

	cfg.Notify.Renderer = strings.ToLower(cfg.Notify.Renderer)
	if cfg.Notify.Renderer == "" {
		cfg.Notify.Renderer = "log"
	}
	cfg.Monitoring.Sink = strings.ToLower(cfg.Monitoring.Sink)
	if cfg.Monitoring.Sink == "" {
		cfg.Monitoring.Sink = "log"
	}
}

// Validate checks cross-field constraints.
func (cfg *AppConfig) Validate() error {
	if err := cfg.Retry.Backoff().Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if cfg.Retry.AttemptTimeout < 0 {
		return fmt.Errorf("retry: attempt_timeout must not be negative")
	}

	switch cfg.Notify.Renderer {
	case "log", "none":
	case "redis":
		if cfg.Redis.URL == "" {
			return fmt.Errorf("notify: renderer redis requires redis.url")
		}
	default:
		return fmt.Errorf("notify: unknown renderer %q", cfg.Notify.Renderer)
	}

	switch cfg.Monitoring.Sink {
	case "log", "memory", "none":
	case "redis":
		if cfg.Redis.URL == "" {
			return fmt.Errorf("monitoring: sink redis requires redis.url")
		}
	case "postgres":
		if cfg.Database.URL == "" {
			return fmt.Errorf("monitoring: sink postgres requires database.url")
		}
	default:
		return fmt.Errorf("monitoring: unknown sink %q", cfg.Monitoring.Sink)
	}

	if cfg.Monitoring.Retention < 0 {
		return fmt.Errorf("monitoring: retention must not be negative")
	}

	for _, p := range cfg.Classifier.Patterns {
		if p.Name == "" || p.Pattern == "" {
			return fmt.Errorf("classifier: pattern rules need a name and a pattern")
		}
	}
	return nil
}
