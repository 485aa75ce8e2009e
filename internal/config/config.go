// Package config defines all configuration structures for citekeep.  No I/O
// or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitRPS    int           `mapstructure:"rate_limit_rps"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds cache connection parameters.  Disabled means source
// content is always read from the primary store.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds the domain-event producer parameters.  Disabled means
// no events are published.
type KafkaConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Brokers         []string `mapstructure:"brokers"`
	ProducerRetries int      `mapstructure:"producer_retries"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	TopicPrefix     string   `mapstructure:"topic_prefix"`
}

// MinIOConfig holds object-storage parameters for offloaded source content.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
	Output string `mapstructure:"output"`
}

// DedupConfig holds deduplication defaults and the similarity metric choice.
type DedupConfig struct {
	DefaultThreshold float64 `mapstructure:"default_threshold"`
	DefaultLimit     int     `mapstructure:"default_limit"`
	DefaultMinSim    float64 `mapstructure:"default_min_sim"`
	Metric           string  `mapstructure:"metric"` // "token_jaccard" | "trigram_jaccard"
}

// AnchorConfig holds the anchor resolver's fallback heuristics.
type AnchorConfig struct {
	NormalizedEndPadding int     `mapstructure:"normalized_end_padding"`
	FuzzyPrefixLen       int     `mapstructure:"fuzzy_prefix_len"`
	BroadMatchRatio      float64 `mapstructure:"broad_match_ratio"`
}

// Config is the root configuration structure for the service.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Log      LogConfig      `mapstructure:"log"`
	Dedup    DedupConfig    `mapstructure:"dedup"`
	Anchor   AnchorConfig   `mapstructure:"anchor"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required when redis is enabled")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	// Kafka
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker when kafka is enabled")
	}

	// MinIO
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required when minio is enabled")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required when minio is enabled")
		}
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Dedup
	if c.Dedup.DefaultThreshold <= 0 || c.Dedup.DefaultThreshold > 1 {
		return fmt.Errorf("config: dedup.default_threshold %v outside (0, 1]", c.Dedup.DefaultThreshold)
	}
	if c.Dedup.DefaultLimit < 1 {
		return fmt.Errorf("config: dedup.default_limit must be >= 1, got %d", c.Dedup.DefaultLimit)
	}
	if c.Dedup.DefaultMinSim < 0 || c.Dedup.DefaultMinSim > 1 {
		return fmt.Errorf("config: dedup.default_min_sim %v outside [0, 1]", c.Dedup.DefaultMinSim)
	}
	switch c.Dedup.Metric {
	case "token_jaccard", "trigram_jaccard":
	default:
		return fmt.Errorf("config: dedup.metric %q is invalid; expected token_jaccard|trigram_jaccard", c.Dedup.Metric)
	}

	// Anchor
	if c.Anchor.NormalizedEndPadding < 0 {
		return fmt.Errorf("config: anchor.normalized_end_padding must be >= 0, got %d", c.Anchor.NormalizedEndPadding)
	}
	if c.Anchor.FuzzyPrefixLen < 1 {
		return fmt.Errorf("config: anchor.fuzzy_prefix_len must be >= 1, got %d", c.Anchor.FuzzyPrefixLen)
	}
	if c.Anchor.BroadMatchRatio <= 0 || c.Anchor.BroadMatchRatio > 1 {
		return fmt.Errorf("config: anchor.broad_match_ratio %v outside (0, 1]", c.Anchor.BroadMatchRatio)
	}

	return nil
}
