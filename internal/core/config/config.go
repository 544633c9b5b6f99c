package config

import (
	"time"

	redisclient "github.com/vietddude/invoker/internal/infra/redis"
	"github.com/vietddude/invoker/internal/infra/storage/postgres"
	"github.com/vietddude/invoker/internal/resilience/backoff"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Environment string             `yaml:"environment"`
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Retry       RetryConfig        `yaml:"retry"`
	Classifier  ClassifierConfig   `yaml:"classifier"`
	Diagnostics DiagnosticsConfig  `yaml:"diagnostics"`
	Notify      NotifyConfig       `yaml:"notify"`
	Monitoring  MonitoringConfig   `yaml:"monitoring"`
	Redis       redisclient.Config `yaml:"redis"`
	Database    postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// RetryConfig holds the backoff schedule applied to classified errors.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	Multiplier     float64       `yaml:"multiplier"`
	Jitter         time.Duration `yaml:"jitter"`          // 0 = deterministic
	AttemptTimeout time.Duration `yaml:"attempt_timeout"` // 0 = unbounded
}

// Backoff converts the section into a backoff config.
func (r RetryConfig) Backoff() backoff.Config {
	return backoff.Config{
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   r.BaseDelay,
		MaxDelay:    r.MaxDelay,
		Multiplier:  r.Multiplier,
		Jitter:      r.Jitter,
	}
}

// ClassifierConfig adds signatures on top of the built-in set.
type ClassifierConfig struct {
	DisableDefaults bool          `yaml:"disable_defaults"`
	Patterns        []PatternRule `yaml:"patterns"`
	Codes           []string      `yaml:"codes"`
}

// PatternRule is a named case-insensitive regular expression.
type PatternRule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// DiagnosticsConfig bounds the diagnostics log.
type DiagnosticsConfig struct {
	Capacity int `yaml:"capacity"`
	Recent   int `yaml:"recent"`
}

// NotifyConfig selects the toast surface.
type NotifyConfig struct {
	Renderer string `yaml:"renderer"` // log, redis, none
	Channel  string `yaml:"channel"`
}

// MonitoringConfig selects the sink coded errors are forwarded to.
type MonitoringConfig struct {
	Sink       string `yaml:"sink"` // log, memory, redis, postgres, none
	ListKey    string `yaml:"list_key"`
	MaxReports int    `yaml:"max_reports"`

	// Retention prunes memory and postgres reports older than this. 0 keeps
	// everything.
	Retention time.Duration `yaml:"retention"`
}
