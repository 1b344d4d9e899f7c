package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/setu-labs/sahayak/config"
	profilerepo "github.com/setu-labs/sahayak/internal/repositories/profile"
	schemerepo "github.com/setu-labs/sahayak/internal/repositories/scheme"
	"github.com/setu-labs/sahayak/pkg/database"
	"github.com/setu-labs/sahayak/pkg/events"
	"github.com/setu-labs/sahayak/pkg/graph"
	"github.com/setu-labs/sahayak/pkg/interpreter"
	"github.com/setu-labs/sahayak/pkg/kafka"
	"github.com/setu-labs/sahayak/pkg/matching"
	"github.com/setu-labs/sahayak/pkg/middleware"
	"github.com/setu-labs/sahayak/pkg/retrieval"
	healthroute "github.com/setu-labs/sahayak/pkg/routes/health"
	matchroute "github.com/setu-labs/sahayak/pkg/routes/match"
	sweeproute "github.com/setu-labs/sahayak/pkg/routes/sweep"
	"github.com/setu-labs/sahayak/pkg/scoring"
	"github.com/setu-labs/sahayak/pkg/sweep"
	"github.com/setu-labs/sahayak/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.InitProvider()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	schemes := schemerepo.NewRepository(db, logger)
	profiles := profilerepo.NewRepository(db, logger)

	graphClient, err := graph.NewClient(graph.Config{
		Host:     cfg.Graph.Host,
		Port:     cfg.Graph.Port,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to graph database: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = graphClient.Close(closeCtx)
	}()
	history := graph.NewHistoryStore(graphClient, logger)

	index := retrieval.NewIndex()
	active, err := schemes.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scheme catalog: %w", err)
	}
	for _, s := range active {
		index.Upsert(s)
	}
	logger.Info("loaded scheme catalog snapshot", zap.Int("schemes", index.Len()))

	embedder, err := retrieval.NewOpenAIEmbedder(retrieval.EmbedderConfig{
		BaseURL: cfg.AI.EmbeddingBaseURL,
		Token:   cfg.AI.Token,
		Model:   cfg.AI.EmbeddingModel,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to build embedder: %w", err)
	}

	provider, err := interpreter.NewLLMProvider(interpreter.LLMConfig{
		BaseURL: cfg.AI.BaseURL,
		Token:   cfg.AI.Token,
		Model:   cfg.AI.Model,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to build llm provider: %w", err)
	}

	// One rate budget shared by interactive matches and background sweeps.
	limiter := rate.NewLimiter(rate.Limit(cfg.AI.InterpretRateLimit), int(cfg.AI.InterpretRateLimit)+1)

	interp := interpreter.New(provider, interpreter.Config{
		MinConfidence: cfg.AI.MinConfidence,
		Timeout:       cfg.AI.InterpretTimeout,
		CacheTTL:      cfg.AI.CacheTTL,
		RateLimit:     rate.Limit(cfg.AI.InterpretRateLimit),
		RateBurst:     int(cfg.AI.InterpretRateLimit) + 1,
	}, limiter, logger)

	retriever := retrieval.New(embedder, index, index, retrieval.Config{
		DefaultTopK: cfg.Matching.TopK,
		Timeout:     cfg.Matching.RetrievalTimeout,
	}, logger)

	scorer := scoring.New(scoring.Config{
		Weights: scoring.Weights{
			Eligibility: cfg.Matching.EligibilityWeight,
			Deadline:    cfg.Matching.DeadlineWeight,
			Benefit:     cfg.Matching.BenefitWeight,
		},
		DeadlineHorizonDays: cfg.Matching.DeadlineHorizonDays,
		NearMissMaxUnmet:    cfg.Matching.NearMissMaxUnmet,
	})

	orchestrator := matching.NewOrchestrator(logger, retriever, interp, scorer, history, matching.Config{
		TopK: cfg.Matching.TopK,
	})

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.EligibilityTopic,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
	}, logger)
	defer func() { _ = producer.Close() }()

	emitter := events.NewEmitter(producer, logger)

	sweeper, err := sweep.NewSweeper(profiles, orchestrator, history, emitter, sweep.Config{
		Workers:            cfg.Sweep.Workers,
		BatchSize:          cfg.Sweep.BatchSize,
		CompletionDeadline: cfg.Sweep.CompletionDeadline,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to build sweeper: %w", err)
	}
	defer sweeper.Close()

	trigger := sweep.NewTrigger(logger, sweeper, schemes, index, history, interp, cfg.Matching.NearMissMaxUnmet)

	var consumer *kafka.Consumer
	if cfg.Kafka.ConsumerEnabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.ChangeTopic,
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
		}, logger, trigger.HandleMessage)
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start change consumer: %w", err)
		}
		defer func() { _ = consumer.Stop() }()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Logger(logger))

	healthroute.Register(e.Group("/health"))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	matchroute.NewHandler(orchestrator, profiles, logger).Register(api.Group("/match"))
	sweeproute.NewHandler(sweeper, logger).Register(api.Group("/sweeps"))

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("starting server", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", cfg.AppName)), nil
}
