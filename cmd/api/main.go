package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/erandesamadhan2003/autopost-backend/api/routes"
	"github.com/erandesamadhan2003/autopost-backend/internal/accounts"
	"github.com/erandesamadhan2003/autopost-backend/internal/drafts"
	"github.com/erandesamadhan2003/autopost-backend/internal/generation"
	"github.com/erandesamadhan2003/autopost-backend/internal/pipeline"
	"github.com/erandesamadhan2003/autopost-backend/pkg/config"
	"github.com/erandesamadhan2003/autopost-backend/pkg/db"
	"github.com/erandesamadhan2003/autopost-backend/pkg/logger"
	"github.com/erandesamadhan2003/autopost-backend/pkg/metrics"
	"github.com/erandesamadhan2003/autopost-backend/pkg/migrate"
	"github.com/erandesamadhan2003/autopost-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, generate rate limit disabled")
	}

	generators, err := generation.NewClient(cfg.Generation)
	if err != nil {
		logg.Error(context.Background(), "failed to create generation client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	draftRepo := drafts.NewRepository(dbClient.DB())
	orchestrator, err := pipeline.NewOrchestrator(pipeline.Params{
		Tracker:      pipeline.NewTracker(dbClient.DB(), cfg.Generation.MaxRetries),
		Drafts:       draftRepo,
		Generators:   generators,
		Logger:       logg,
		Metrics:      pipelineMetrics,
		RetryBackoff: cfg.Generation.RetryBackoff,
		MusicMood:    cfg.Generation.MusicMood,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline orchestrator", err)
		os.Exit(1)
	}
	runner, err := pipeline.NewRunner(orchestrator)
	if err != nil {
		logg.Error(context.Background(), "failed to create pipeline runner", err)
		os.Exit(1)
	}

	draftService, err := drafts.NewService(draftRepo, runner, accounts.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create draft service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	var dbPinger db.Pinger = dbClient
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:   cfg,
			Logger:   logg,
			DB:       dbPinger,
			Redis:    redisClient,
			Drafts:   draftService,
			Gatherer: registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
	defer cancel()
	logg.Info(ctx, "shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "http shutdown incomplete", err)
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "pipeline runs did not settle before shutdown", err)
	}
}
