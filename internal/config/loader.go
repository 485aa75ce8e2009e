// Package config provides configuration loading, defaults, and validation
// for citekeep.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "CITEKEEP"

// newViper builds a pre-configured Viper instance with the service's
// standard settings: YAML file type, CITEKEEP_ env prefix, automatic env
// binding, and a key replacer that maps "." to "_" so that nested keys like
// "database.host" resolve to "CITEKEEP_DATABASE_HOST".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys binds every config key to its CITEKEEP_* environment
// variable; viper ignores environment variables for keys it has never been
// told about, which would break env-only loading.
func registerKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port", "server.mode", "server.read_timeout", "server.write_timeout",
		"server.max_body_size", "server.shutdown_timeout", "server.rate_limit_rps",
		"database.host", "database.port", "database.user", "database.password",
		"database.db_name", "database.ssl_mode", "database.max_conns", "database.min_conns",
		"database.conn_max_lifetime", "database.conn_max_idle_time", "database.migration_path",
		"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.pool_size",
		"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout",
		"redis.default_ttl", "redis.key_prefix",
		"kafka.enabled", "kafka.brokers", "kafka.producer_retries", "kafka.batch_timeout",
		"kafka.topic_prefix",
		"minio.enabled", "minio.endpoint", "minio.access_key", "minio.secret_key",
		"minio.bucket", "minio.use_ssl",
		"log.level", "log.format", "log.output",
		"dedup.default_threshold", "dedup.default_limit", "dedup.default_min_sim", "dedup.metric",
		"anchor.normalized_end_padding", "anchor.fuzzy_prefix_len", "anchor.broad_match_ratio",
	} {
		_ = v.BindEnv(key)
	}
}

// Load reads the YAML file at configPath, merges any CITEKEEP_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from CITEKEEP_* environment
// variables, with no config file required.  This is the preferred loading
// strategy for containerised deployments.
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level and dedup defaults;
// callers apply only the safe subset of changes at runtime.
//
// Watch is non-blocking; viper manages the background goroutine.  A change
// that fails to parse or validate is dropped without invoking onChange so
// the running service never adopts a broken config.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; callers should have called Load first, so errors here
	// are ignored.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on any error.  Intended for main(), where
// a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
