package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/erandesamadhan2003/autopost-backend/internal/accounts"
	"github.com/erandesamadhan2003/autopost-backend/internal/cron"
	"github.com/erandesamadhan2003/autopost-backend/internal/drafts"
	"github.com/erandesamadhan2003/autopost-backend/internal/posts"
	"github.com/erandesamadhan2003/autopost-backend/internal/publishing"
	"github.com/erandesamadhan2003/autopost-backend/pkg/config"
	"github.com/erandesamadhan2003/autopost-backend/pkg/db"
	"github.com/erandesamadhan2003/autopost-backend/pkg/logger"
	"github.com/erandesamadhan2003/autopost-backend/pkg/metrics"
	"github.com/erandesamadhan2003/autopost-backend/pkg/migrate"
	"github.com/erandesamadhan2003/autopost-backend/pkg/redis"
)

const stopTimeout = 30 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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
		logg.Warn(context.Background(), "redis not configured, scheduler locks are process-local")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	schedulerMetrics := metrics.NewSchedulerMetrics(registry)
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	publishers, err := publishing.NewRegistry(
		publishing.NewInstagram(cfg.Publishing),
		publishing.NewLinkedIn(cfg.Publishing),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to build publisher registry", err)
		os.Exit(1)
	}

	accountRepo := accounts.NewRepository(dbClient.DB())
	resolver, err := accounts.NewResolver(accountRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create account resolver", err)
		os.Exit(1)
	}
	postRepo := posts.NewRepository(dbClient.DB())

	publishJob, err := cron.NewScheduledPublishJob(cron.ScheduledPublishJobParams{
		Logger:     logg,
		Drafts:     drafts.NewRepository(dbClient.DB()),
		Accounts:   resolver,
		Posts:      postRepo,
		Publishers: publishers,
		Metrics:    pipelineMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduled publish job", err)
		os.Exit(1)
	}
	metricsJob, err := cron.NewMetricsRefreshJob(cron.MetricsRefreshJobParams{
		Logger:     logg,
		Posts:      postRepo,
		Accounts:   accountRepo,
		Publishers: publishers,
		Metrics:    pipelineMetrics,
		Window:     cfg.Cron.MetricsWindow,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create metrics refresh job", err)
		os.Exit(1)
	}

	publishScheduler, err := newScheduler(logg, redisClient, schedulerMetrics, "publish", cfg.App.Env, cfg.Cron.PublishInterval, publishJob)
	if err != nil {
		logg.Error(context.Background(), "failed to create publish scheduler", err)
		os.Exit(1)
	}
	metricsScheduler, err := newScheduler(logg, redisClient, schedulerMetrics, "metrics", cfg.App.Env, cfg.Cron.MetricsInterval, metricsJob)
	if err != nil {
		logg.Error(context.Background(), "failed to create metrics scheduler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	for _, scheduler := range []*cron.Service{publishScheduler, metricsScheduler} {
		if err := scheduler.Start(groupCtx); err != nil {
			logg.Error(ctx, "failed to start scheduler", err)
			os.Exit(1)
		}
	}
	group.Go(func() error {
		<-groupCtx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		for _, scheduler := range []*cron.Service{publishScheduler, metricsScheduler} {
			if err := scheduler.Stop(stopCtx); err != nil {
				logg.Error(ctx, "scheduler did not stop cleanly", err)
			}
		}
		return metricsServer.Shutdown(stopCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// newScheduler builds one scheduler running a single job, guarded by a redis
// lock when redis is configured.
func newScheduler(logg *logger.Logger, redisClient *redis.Client, schedulerMetrics *metrics.SchedulerMetrics, name, env string, interval time.Duration, job cron.Job) (*cron.Service, error) {
	var lock cron.Lock = cron.NewLocalLock()
	if redisClient != nil {
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(env, job.Name())), 0)
		if err != nil {
			return nil, err
		}
		lock = redisLock
	}
	registry, err := cron.NewRegistry(job)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Name:     name,
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  schedulerMetrics,
		Interval: interval,
	})
}

func lockName(env, job string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", env, job)
}
