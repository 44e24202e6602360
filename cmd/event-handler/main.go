package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"professional-onboarding/internal/config"
	"professional-onboarding/internal/events"
	"professional-onboarding/internal/logging"
	"professional-onboarding/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("event-handler", cfg.LogLevel)
	fatal := func(msg string, err error) {
		logger.Error(msg, "error", err)
		os.Exit(1)
	}

	minioClient, err := storage.NewMinioClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		fatal("connect minio", err)
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		fatal("connect postgres", err)
	}
	defer store.Close()

	source := events.NewMinioObjectEventSource(minioClient, cfg.MinioBucket, "", "")
	source.OnSkip(func(key string, err error) {
		logger.Debug("ignoring object outside the document layout", "object", key, "error", err)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("event-handler listening for object events", "bucket", cfg.MinioBucket)
	err = source.Run(ctx, func(parent context.Context, event events.ObjectEvent) error {
		insertCtx, cancel := context.WithTimeout(parent, 5*time.Second)
		defer cancel()

		if err := store.InsertStorageEvent(insertCtx, storage.StorageEvent{
			ObjectKey:    event.ObjectKey,
			EventName:    event.EventName,
			ProfileID:    event.ProfileID,
			DocumentType: event.DocumentType,
			OccurredAt:   event.OccurredAt,
		}); err != nil {
			return err
		}
		logger.Info("storage event recorded", "event", event.EventName, "object", event.ObjectKey, "profile_id", event.ProfileID)
		return nil
	})
	if err != nil {
		fatal("event-handler stopped with error", err)
	}
}
