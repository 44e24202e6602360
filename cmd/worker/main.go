package main

import (
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"professional-onboarding/internal/config"
	"professional-onboarding/internal/logging"
	"professional-onboarding/internal/storage"
	appTemporal "professional-onboarding/internal/temporal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	fatal := func(msg string, err error) {
		logger.Error(msg, "error", err)
		os.Exit(1)
	}

	store, err := storage.NewPostgresStore(cfg.PostgresDSN)
	if err != nil {
		fatal("connect postgres", err)
	}
	defer store.Close()

	blob, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.MinioBucket)
	if err != nil {
		fatal("connect minio", err)
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    logger,
	})
	if err != nil {
		fatal("connect temporal", err)
	}
	defer temporalClient.Close()

	activities := &appTemporal.Activities{
		Profiles: store,
		Objects:  blob,
	}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(appTemporal.OnboardingTransitionWorkflow, workflow.RegisterOptions{Name: appTemporal.OnboardingTransitionWorkflowName})
	w.RegisterWorkflowWithOptions(appTemporal.OrphanSweepWorkflow, workflow.RegisterOptions{Name: appTemporal.OrphanSweepWorkflowName})
	w.RegisterActivity(activities.AdvanceOnboardingActivity)
	w.RegisterActivity(activities.DeleteObjectsActivity)

	logger.Info("worker running", "task_queue", cfg.TemporalTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		fatal("worker stopped with error", err)
	}
}
