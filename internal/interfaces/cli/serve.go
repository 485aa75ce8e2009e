package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/citekeep/citekeep/internal/application/content"
	"github.com/citekeep/citekeep/internal/application/dedup"
	"github.com/citekeep/citekeep/internal/application/evidence"
	"github.com/citekeep/citekeep/internal/application/excerpt"
	"github.com/citekeep/citekeep/internal/application/projection"
	"github.com/citekeep/citekeep/internal/config"
	"github.com/citekeep/citekeep/internal/domain/anchor"
	"github.com/citekeep/citekeep/internal/domain/similarity"
	"github.com/citekeep/citekeep/internal/domain/source"
	"github.com/citekeep/citekeep/internal/infrastructure/database/postgres"
	"github.com/citekeep/citekeep/internal/infrastructure/database/postgres/repositories"
	"github.com/citekeep/citekeep/internal/infrastructure/database/redis"
	"github.com/citekeep/citekeep/internal/infrastructure/messaging/kafka"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/prometheus"
	"github.com/citekeep/citekeep/internal/infrastructure/storage/minio"
	httpapi "github.com/citekeep/citekeep/internal/interfaces/http"
	"github.com/citekeep/citekeep/internal/interfaces/http/handlers"
	"github.com/citekeep/citekeep/internal/interfaces/http/middleware"
)

func newServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the citekeep API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return RunServer(cmd.Context(), cfg, opts.ConfigPath)
		},
	}
}

// RunServer wires every dependency from config and serves the API until a
// termination signal or context cancellation. When configPath is non-empty
// the file is watched and dedup run defaults are reloaded on change.
func RunServer(ctx context.Context, cfg *config.Config, configPath string) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	logging.SetDefault(log)

	pool, err := postgres.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.MigrationPath != "" {
		if err := postgres.Migrate(cfg.Database, log); err != nil {
			return err
		}
	}

	metrics := prometheus.NewAppMetrics()

	factRepo := repositories.NewFactRepository(pool, log)
	sourceRepo := repositories.NewSourceRepository(pool, log)

	var blobs source.BlobStore
	if cfg.MinIO.Enabled {
		store, err := minio.NewBlobStore(ctx, cfg.MinIO, log)
		if err != nil {
			return err
		}
		blobs = store
	}

	var cache content.Cache
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		cache = redis.NewContentCache(redisClient, cfg.Redis, log, redis.WithObserver(metrics))
	}

	var publisher kafka.Publisher = kafka.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, log, kafka.WithObserver(metrics))
		defer producer.Close()
		publisher = producer
	}

	contentSvc := content.NewService(sourceRepo, blobs, cache, cfg.Redis.DefaultTTL, log)
	resolver := anchor.NewResolver(anchor.Options{
		NormalizedEndPadding: cfg.Anchor.NormalizedEndPadding,
		FuzzyPrefixLen:       cfg.Anchor.FuzzyPrefixLen,
		BroadMatchRatio:      cfg.Anchor.BroadMatchRatio,
	})
	evidenceSvc := evidence.NewService(factRepo, contentSvc, resolver, log)
	excerptSvc := excerpt.NewService(factRepo, contentSvc, log)

	simFunc, err := similarity.ForMetric(similarity.Metric(cfg.Dedup.Metric))
	if err != nil {
		return err
	}
	groupScores := projection.NewScoreTable()
	engine := dedup.NewEngine(factRepo, simFunc, log, dedup.WithScoreSink(groupScores))

	dedupHandler := handlers.NewDedupHandler(engine, cfg.Dedup, publisher, metrics, log)
	if configPath != "" {
		config.Watch(configPath, func(next *config.Config) {
			dedupHandler.UpdateDefaults(next.Dedup)
			log.Info("configuration reloaded",
				logging.Float64("dedup_default_threshold", next.Dedup.DefaultThreshold),
				logging.Int("dedup_default_limit", next.Dedup.DefaultLimit),
			)
		})
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		FactHandler: handlers.NewFactHandler(factRepo, evidenceSvc, excerptSvc, publisher, metrics, log,
			handlers.WithDefaultMinSim(cfg.Dedup.DefaultMinSim),
			handlers.WithGroupScores(groupScores)),
		DedupHandler:    dedupHandler,
		SourceHandler:   handlers.NewSourceHandler(contentSvc, log),
		HealthHandler:   handlers.NewHealthHandler(healthChecks(pool, redisClient)),
		MetricsHandler:  metrics.Handler(),
		RequestObserver: metrics,
		RateLimiter:     middleware.NewRateLimiter(cfg.Server.RateLimitRPS),
		Logger:          log,
	})
	server := httpapi.NewServer(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutdown signal received", logging.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

func healthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]handlers.HealthChecker {
	checks := map[string]handlers.HealthChecker{
		"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Ping
	}
	return checks
}
