package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RishiKendai/lichen/internal/api"
	"github.com/RishiKendai/lichen/internal/config"
	"github.com/RishiKendai/lichen/internal/configs/env"
	"github.com/RishiKendai/lichen/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/lichen/internal/infra/redis"
	"github.com/RishiKendai/lichen/internal/logger"
	"github.com/RishiKendai/lichen/internal/metrics"
	"github.com/RishiKendai/lichen/internal/models"
	"github.com/RishiKendai/lichen/internal/plagiarism"
	"github.com/RishiKendai/lichen/internal/repository"
	"github.com/RishiKendai/lichen/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var envFiles []string
	if opts.EnvFile != "" {
		envFiles = append(envFiles, opts.EnvFile)
	}
	if err := env.LoadEnv(envFiles...); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if opts.Workers > 0 {
		cfg.WorkerCount = opts.Workers
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	languages, err := config.LoadLanguageTable(cfg.LanguagesFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.LanguagesFile).Msg("Failed to load language table")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Mode == modeServe {
		if err := cfg.ValidateServer(); err != nil {
			log.Fatal().Err(err).Msg("Invalid configuration")
		}
		if err := serve(ctx, cfg, languages); err != nil {
			log.Fatal().Err(err).Msg("Server stopped with error")
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := runBatch(ctx, cfg, languages, opts); err != nil {
		log.Fatal().Err(err).Str("basePath", opts.BasePath).Msg("Run failed")
	}
}

// runBatch runs one stage (or both) over a base path without Redis or MongoDB
func runBatch(ctx context.Context, cfg *config.Config, languages config.LanguageTable, opts *options) error {
	basePath, err := config.ResolveBasePath(cfg.DataDir, opts.BasePath)
	if err != nil {
		return err
	}

	workerPool := plagiarism.NewWorkerPool(ctx, cfg.WorkerCount)
	defer workerPool.Close()

	runner := plagiarism.NewRunner(workerPool, languages, cfg.FingerprintWidth, cfg.MaxSequencesPerFile)
	report, err := runner.Run(ctx, models.RunRequest{
		RunID:          uuid.NewString(),
		BasePath:       basePath,
		Gradeable:      opts.Gradeable,
		Mode:           opts.Mode,
		Language:       opts.Language,
		SequenceLength: opts.SequenceLength,
	})
	if err != nil {
		return err
	}

	for _, w := range report.Warnings {
		log.Warn().Str("runID", report.RunID).Msg(w)
	}
	log.Info().
		Str("runID", report.RunID).
		Int("hashed", report.SubmissionsHashed).
		Int("truncated", report.TruncatedFiles).
		Int("ranked", report.SubmissionsRanked).
		Int("overall", report.OverallEntries).
		Dur("hashDuration", report.HashDuration).
		Dur("rankDuration", report.RankDuration).
		Msg("Done")
	return nil
}

// serve runs the HTTP API, the metrics endpoint and the stream consumer until
// ctx ends or one of them fails
func serve(ctx context.Context, cfg *config.Config, languages config.LanguageTable) error {
	log.Info().Msg("Starting lichen server")
	if !cfg.APIDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics.InitPrometheus()
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())

	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return fmt.Errorf("failed to create MongoDB client: %w", err)
	}
	defer mongoClient.Close(context.Background())

	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
	if err != nil {
		return fmt.Errorf("failed to create Redis client: %w", err)
	}
	defer redisClient.Close()

	store := repository.NewResultStore(repository.NewMongoRepository(mongoClient))
	status := plagiarism.NewRedisStatusTracker(redisClient)

	workerPool := plagiarism.NewWorkerPool(ctx, cfg.WorkerCount)
	defer workerPool.Close()

	runner := plagiarism.NewRunner(
		workerPool,
		languages,
		cfg.FingerprintWidth,
		cfg.MaxSequencesPerFile,
		plagiarism.WithStatusTracker(status),
		plagiarism.WithResultSink(store),
	)

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.NewString()[:8])
	consumer := stream.NewConsumer(redisClient.Client, runner, stream.ConsumerConfig{
		StreamKey:         cfg.RedisStreamKey,
		ConsumerGroup:     cfg.RedisConsumerGroup,
		ConsumerName:      consumerName,
		DeadLetterKey:     cfg.RedisDeadLetterKey,
		DataDir:           cfg.DataDir,
		RunTimeout:        cfg.RunTimeout,
		RetentionDuration: cfg.StreamRetentionDuration,
	})
	log.Info().Str("consumer_name", consumerName).Msg("Redis stream consumer initialized")

	handler := api.NewHandler(cfg, runner, status, store)
	router := api.SetupRoutes(cfg, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, api.NewServer(router, cfg.ServerPort), "api", 30*time.Second)
	})
	g.Go(func() error {
		return api.Serve(gctx, api.NewServer(metricsMux, cfg.MetricsPort), "metrics", 5*time.Second)
	})
	g.Go(func() error {
		if err := consumer.Start(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("redis consumer: %w", err)
		}
		return nil
	})

	err = g.Wait()

	// in-flight HTTP runs fail fast once the pool is closed and are marked failed
	workerPool.Close()
	handler.Wait()
	log.Info().Msg("Shutdown complete")
	return err
}
