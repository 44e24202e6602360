package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"

	"professional-onboarding/internal/api"
	"professional-onboarding/internal/config"
	"professional-onboarding/internal/domain"
	"professional-onboarding/internal/lock"
	"professional-onboarding/internal/logging"
	"professional-onboarding/internal/metrics"
	"professional-onboarding/internal/notify"
	"professional-onboarding/internal/saga"
	"professional-onboarding/internal/storage"
	appTemporal "professional-onboarding/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	fatal := func(msg string, err error) {
		logger.Error(msg, "error", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; every onboarding request will be rejected")
	}

	catalog, err := domain.LoadCatalog(cfg.DocumentCatalogPath)
	if err != nil {
		fatal("load document catalog", err)
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		fatal("connect postgres", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		fatal("postgres ping", err)
	}

	blob, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		fatal("connect minio", err)
	}

	var locker lock.Locker = lock.NoopLocker{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			fatal("redis ping", err)
		}
		locker = lock.NewRedisLocker(rdb, "", cfg.LockTTL)
	} else {
		logger.Warn("REDIS_ADDR is empty; concurrent submissions for one profile are not serialized")
	}

	var publisher notify.Publisher = notify.NoopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := notify.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			fatal("connect nats", err)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	var (
		advancer  saga.StatusAdvancer = store
		completer api.ProfileCompleter = store
		sweeper   saga.OrphanSweeper
	)
	if cfg.StatusTransitionMode == config.StatusTransitionTemporal {
		temporalClient, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalAddress,
			Namespace: cfg.TemporalNamespace,
			Logger:    logger,
		})
		if err != nil {
			fatal("connect temporal", err)
		}
		defer temporalClient.Close()

		dispatcher := appTemporal.NewDispatcher(temporalClient, cfg.TemporalTaskQueue, cfg.WorkflowIDPrefix, cfg.SweepGracePeriod)
		advancer = dispatcher
		completer = dispatcher
		sweeper = dispatcher
	}

	sagaMetrics := metrics.NewSagaMetrics()
	submitter := saga.NewSubmitter(saga.Dependencies{
		Objects:   blob,
		Records:   store,
		Status:    store,
		Advancer:  advancer,
		Catalog:   catalog,
		Locker:    locker,
		Publisher: publisher,
		Sweeper:   sweeper,
		Metrics:   sagaMetrics,
		Logger:    logger,
		Timeout:   cfg.SagaTimeout,
	})

	h := api.NewHandler(cfg, submitter, store, completer, blob, logger)
	router := api.NewRouter(h, sagaMetrics.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.HTTPPort, "status_transition_mode", cfg.StatusTransitionMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("http server failed", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.SagaTimeout+10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
