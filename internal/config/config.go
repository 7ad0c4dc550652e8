// Package config defines testharbor's configuration schema and the viper
// based loader that resolves it from a TOML file plus environment overrides.
package config

import "fmt"

// Config is the root configuration schema, mirroring the TOML sections
// documented for the service.
type Config struct {
	Server          ServerConfig                `mapstructure:"server"`
	Database        DatabaseConfig              `mapstructure:"database"`
	Writers         map[string]WriterConfig     `mapstructure:"writers"`
	Auth            AuthConfig                  `mapstructure:"auth"`
	DataRetention   map[string]RetentionConfig  `mapstructure:"data_retention"`
	ExecutionSuggest ExecutionSuggestConfig     `mapstructure:"execution_suggest"`
	Logging         LoggingConfig               `mapstructure:"logging"`
	Metrics         MetricsConfig               `mapstructure:"metrics"`
	RateLimit       RateLimitConfig             `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	URL               string `mapstructure:"url"`
	MaxConnections    int    `mapstructure:"max_connections"`
	WAL               bool   `mapstructure:"wal"`
	WALAutocheckpoint int    `mapstructure:"wal_autocheckpoint"`
}

// WriterConfig is keyed by writer name under the "writers" table, e.g.
// writers.test_result.
type WriterConfig struct {
	BatchSize       int `mapstructure:"batch_size"`
	FlushIntervalMS int `mapstructure:"flush_interval_ms"`
}

type AuthConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Algorithm  string `mapstructure:"algorithm"`
	SecretPath string `mapstructure:"secret_path"`
}

// RetentionConfig is keyed by table name under "data_retention", e.g.
// data_retention.test_result.
type RetentionConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	PeriodInDays int    `mapstructure:"period_in_day"`
	Cron         string `mapstructure:"cron"`
}

type ExecutionSuggestConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MinQueryLen   int  `mapstructure:"min_query_len"`
	MaxQueryLen   int  `mapstructure:"max_query_len"`
	MaxCandidates int  `mapstructure:"max_candidates"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// RateLimitConfig bounds the two write routes (POST /api/result, POST
// /api/executions/:id/result/stream) with a per-remote-address token
// bucket, protecting the bounded ingest queue from a single runaway
// producer.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// Validate checks the parts of the schema that cannot be expressed as
// simple defaults: cross-field and enumeration constraints.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("config: server.port must be positive, got %d", c.Server.Port)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("config: database.url must be set")
	}
	if c.Auth.Enabled {
		switch c.Auth.Algorithm {
		case "HS256", "RS256", "ES256":
		default:
			return fmt.Errorf("config: auth.algorithm must be one of HS256, RS256, ES256, got %q", c.Auth.Algorithm)
		}
		if c.Auth.SecretPath == "" {
			return fmt.Errorf("config: auth.secret_path must be set when auth.enabled is true")
		}
	}
	if c.ExecutionSuggest.Enabled {
		if c.ExecutionSuggest.MinQueryLen <= 0 {
			return fmt.Errorf("config: execution_suggest.min_query_len must be positive")
		}
		if c.ExecutionSuggest.MaxQueryLen < c.ExecutionSuggest.MinQueryLen {
			return fmt.Errorf("config: execution_suggest.max_query_len must be >= min_query_len")
		}
		if c.ExecutionSuggest.MaxCandidates <= 0 {
			return fmt.Errorf("config: execution_suggest.max_candidates must be positive")
		}
	}
	return nil
}

// WriterOrDefault returns the configured writer options for name, falling
// back to sane defaults when the section is absent from the file.
func (c *Config) WriterOrDefault(name string) WriterConfig {
	if w, ok := c.Writers[name]; ok {
		if w.BatchSize <= 0 {
			w.BatchSize = defaultBatchSize
		}
		if w.FlushIntervalMS <= 0 {
			w.FlushIntervalMS = defaultFlushIntervalMS
		}
		return w
	}
	return WriterConfig{BatchSize: defaultBatchSize, FlushIntervalMS: defaultFlushIntervalMS}
}

// RetentionOrDefault returns the configured retention options for table,
// falling back to defaults when the section is absent.
func (c *Config) RetentionOrDefault(table string) RetentionConfig {
	if r, ok := c.DataRetention[table]; ok {
		if r.PeriodInDays <= 0 {
			r.PeriodInDays = defaultPeriodInDays
		}
		if r.Cron == "" {
			r.Cron = defaultRetentionCron
		}
		return r
	}
	return RetentionConfig{Enabled: false, PeriodInDays: defaultPeriodInDays, Cron: defaultRetentionCron}
}

const (
	defaultBatchSize      = 50
	defaultFlushIntervalMS = 200
	defaultPeriodInDays    = 90
	defaultRetentionCron   = "0 0 3 * * Sun"
)
