package config

import "time"

// Default value constants.
const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "citekeep"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisTTL       = 10 * time.Minute
	DefaultRedisKeyPrefix = "citekeep:"

	DefaultKafkaBroker      = "localhost:9092"
	DefaultKafkaTopicPrefix = "citekeep"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "citekeep-content"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultDedupThreshold = 0.92
	DefaultDedupLimit     = 500
	DefaultDedupMinSim    = 0.88
	DefaultDedupMetric    = "token_jaccard"

	DefaultNormalizedEndPadding = 50
	DefaultFuzzyPrefixLen       = 50
	DefaultBroadMatchRatio      = 1.0 / 3
)

// ApplyDefaults fills every zero-value field in cfg with the service default.
// Fields that have already been set by the caller are left unchanged so that
// explicit configuration always wins.  It must run after unmarshalling and
// before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// Server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = 50
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "citekeep"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "db/migrations"
	}

	// Redis
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}

	// Kafka
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.TopicPrefix == "" {
		cfg.Kafka.TopicPrefix = DefaultKafkaTopicPrefix
	}
	if cfg.Kafka.ProducerRetries == 0 {
		cfg.Kafka.ProducerRetries = 3
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 100 * time.Millisecond
	}

	// MinIO
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	// Dedup
	if cfg.Dedup.DefaultThreshold == 0 {
		cfg.Dedup.DefaultThreshold = DefaultDedupThreshold
	}
	if cfg.Dedup.DefaultLimit == 0 {
		cfg.Dedup.DefaultLimit = DefaultDedupLimit
	}
	if cfg.Dedup.DefaultMinSim == 0 {
		cfg.Dedup.DefaultMinSim = DefaultDedupMinSim
	}
	if cfg.Dedup.Metric == "" {
		cfg.Dedup.Metric = DefaultDedupMetric
	}

	// Anchor
	if cfg.Anchor.NormalizedEndPadding == 0 {
		cfg.Anchor.NormalizedEndPadding = DefaultNormalizedEndPadding
	}
	if cfg.Anchor.FuzzyPrefixLen == 0 {
		cfg.Anchor.FuzzyPrefixLen = DefaultFuzzyPrefixLen
	}
	if cfg.Anchor.BroadMatchRatio == 0 {
		cfg.Anchor.BroadMatchRatio = DefaultBroadMatchRatio
	}
}
