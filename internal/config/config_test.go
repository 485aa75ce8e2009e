package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidateServer(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = -1
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Server.Mode = "production"
	assert.Error(t, cfg.Validate())
}

func TestValidateDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Database.MaxConns = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateOptionalInfra(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.MinIO.Enabled = true
	cfg.MinIO.Bucket = ""
	assert.Error(t, cfg.Validate())

	// Disabled sections skip their checks entirely.
	cfg = validConfig()
	cfg.Redis.Addr = ""
	cfg.Kafka.Brokers = nil
	assert.NoError(t, cfg.Validate())
}

func TestValidateDedup(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "threshold too high", mutate: func(c *Config) { c.Dedup.DefaultThreshold = 1.5 }},
		{name: "threshold negative", mutate: func(c *Config) { c.Dedup.DefaultThreshold = -0.1 }},
		{name: "limit negative", mutate: func(c *Config) { c.Dedup.DefaultLimit = -1 }},
		{name: "min_sim too high", mutate: func(c *Config) { c.Dedup.DefaultMinSim = 1.1 }},
		{name: "unknown metric", mutate: func(c *Config) { c.Dedup.Metric = "levenshtein" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAnchor(t *testing.T) {
	cfg := validConfig()
	cfg.Anchor.BroadMatchRatio = 1.5
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Anchor.FuzzyPrefixLen = -1
	require.Error(t, cfg.Validate())
}
