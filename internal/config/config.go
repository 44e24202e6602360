package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPPort        = "8080"
	defaultTemporalAddress = "localhost:7233"
	defaultTemporalNS      = "default"
	defaultTaskQueue       = "onboarding-task-queue"
	defaultMinioEndpoint   = "localhost:9000"
	defaultMinioBucket     = "professional-documents"
	defaultNATSSubject     = "onboarding.documents.committed"
	defaultSagaTimeout     = 60
	defaultLockTTL         = 120
	defaultSweepGrace      = 300
	defaultMaxFormBytes    = 32 * 1024 * 1024
	defaultSubmitPerMinute = 6
	defaultSubmitBurst     = 3
)

const (
	StatusTransitionDirect   = "direct"
	StatusTransitionTemporal = "temporal"
)

type Config struct {
	HTTPPort             string
	PostgresDSN          string
	TemporalAddress      string
	TemporalNamespace    string
	TemporalTaskQueue    string
	StatusTransitionMode string
	WorkflowIDPrefix     string
	MinioEndpoint        string
	MinioAccessKey       string
	MinioSecretKey       string
	MinioBucket          string
	MinioUseSSL          bool
	RedisAddr            string
	RedisPassword        string
	LockTTL              time.Duration
	NATSURL              string
	NATSSubject          string
	JWTSecret            string
	DocumentCatalogPath  string
	LogLevel             string
	SagaTimeout          time.Duration
	SweepGracePeriod     time.Duration
	MaxFormBytes         int64
	SubmitRatePerMinute  int
	SubmitBurst          int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:             getenv("HTTP_PORT", defaultHTTPPort),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		TemporalAddress:      getenv("TEMPORAL_ADDRESS", defaultTemporalAddress),
		TemporalNamespace:    getenv("TEMPORAL_NAMESPACE", defaultTemporalNS),
		TemporalTaskQueue:    getenv("TEMPORAL_TASK_QUEUE", defaultTaskQueue),
		StatusTransitionMode: strings.ToLower(getenv("STATUS_TRANSITION_MODE", StatusTransitionDirect)),
		WorkflowIDPrefix:     getenv("WORKFLOW_ID_PREFIX", "onboarding"),
		MinioEndpoint:        getenv("MINIO_ENDPOINT", defaultMinioEndpoint),
		MinioAccessKey:       os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:       os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:          getenv("MINIO_BUCKET", defaultMinioBucket),
		MinioUseSSL:          getenvBool("MINIO_USE_SSL", false),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		LockTTL:              time.Duration(getenvInt("LOCK_TTL_SEC", defaultLockTTL)) * time.Second,
		NATSURL:              os.Getenv("NATS_URL"),
		NATSSubject:          getenv("NATS_SUBJECT", defaultNATSSubject),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		DocumentCatalogPath:  os.Getenv("DOCUMENT_CATALOG_PATH"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		SagaTimeout:          time.Duration(getenvInt("SAGA_TIMEOUT_SEC", defaultSagaTimeout)) * time.Second,
		SweepGracePeriod:     time.Duration(getenvInt("SWEEP_GRACE_SEC", defaultSweepGrace)) * time.Second,
		MaxFormBytes:         int64(getenvInt("MAX_FORM_BYTES", defaultMaxFormBytes)),
		SubmitRatePerMinute:  getenvInt("SUBMIT_RATE_PER_MIN", defaultSubmitPerMinute),
		SubmitBurst:          getenvInt("SUBMIT_BURST", defaultSubmitBurst),
	}

	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required")
	}
	switch cfg.StatusTransitionMode {
	case StatusTransitionDirect, StatusTransitionTemporal:
	default:
		return Config{}, fmt.Errorf("STATUS_TRANSITION_MODE must be %q or %q, got %q", StatusTransitionDirect, StatusTransitionTemporal, cfg.StatusTransitionMode)
	}
	// The profile lock must outlive the longest saga run it guards.
	if cfg.SagaTimeout <= 0 {
		return Config{}, fmt.Errorf("SAGA_TIMEOUT_SEC must be positive, got %s", cfg.SagaTimeout)
	}
	if cfg.LockTTL <= cfg.SagaTimeout {
		return Config{}, fmt.Errorf("LOCK_TTL_SEC (%s) must be longer than SAGA_TIMEOUT_SEC (%s)", cfg.LockTTL, cfg.SagaTimeout)
	}

	return cfg, nil
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
