package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"staybook/pkg/client"
	"staybook/pkg/logger"
	"strconv"
	"time"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Booking lifecycle policy.
	HoldTTL             time.Duration
	StuckPaymentTimeout time.Duration
	PaymentRetryLimit   int
	PlatformFeeBps      int64
	TaxBps              int64
	CancellationCutoff  time.Duration

	// Reconciliation sweep.
	SweepBatchSize int
	SweepSchedule  string

	// External payment processor.
	ProcessorBaseURL string
	ProcessorAPIKey  string
	ProcessorTimeout time.Duration

	PaymentWebhookSecret   string
	SchedulerTriggerSecret string

	// Admin verification gate.
	AdminCodeHash      string
	AdminMaxFailures   int
	AdminLockoutWindow time.Duration
	AdminSessionTTL    time.Duration
	SessionSealKey     string

	EventsTopic    string
	EventsDLQTopic string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		HoldTTL:             getEnvDuration(EnvHoldTTL, DefaultHoldTTL),
		StuckPaymentTimeout: getEnvDuration(EnvStuckPaymentTimeout, DefaultStuckPaymentTimeout),
		PaymentRetryLimit:   getEnvNum(EnvPaymentRetryLimit, DefaultPaymentRetryLimit),
		PlatformFeeBps:      int64(getEnvNum(EnvPlatformFeeBps, DefaultPlatformFeeBps)),
		TaxBps:              int64(getEnvNum(EnvTaxBps, DefaultTaxBps)),
		CancellationCutoff:  getEnvDuration(EnvCancellationCutoff, DefaultCancellationCutoff),

		SweepBatchSize: getEnvNum(EnvSweepBatchSize, DefaultSweepBatchSize),
		SweepSchedule:  getEnvStr(EnvSweepSchedule, DefaultSweepSchedule),

		ProcessorBaseURL: getEnvStr(EnvProcessorBaseURL, DefaultProcessorBaseURL),
		ProcessorAPIKey:  getEnvStr(EnvProcessorAPIKey, ""),
		ProcessorTimeout: getEnvDuration(EnvProcessorTimeout, DefaultProcessorTimeout),

		PaymentWebhookSecret:   getEnvStr(EnvPaymentWebhookSecret, ""),
		SchedulerTriggerSecret: getEnvStr(EnvSchedulerTriggerSecret, ""),

		AdminCodeHash:      getEnvStr(EnvAdminCodeHash, ""),
		AdminMaxFailures:   getEnvNum(EnvAdminMaxFailures, DefaultAdminMaxFailures),
		AdminLockoutWindow: getEnvDuration(EnvAdminLockoutWindow, DefaultAdminLockoutWindow),
		AdminSessionTTL:    getEnvDuration(EnvAdminSessionTTL, DefaultAdminSessionTTL),
		SessionSealKey:     getEnvStr(EnvSessionSealKey, ""),

		EventsTopic:    getEnvStr(EnvEventsTopic, DefaultEventsTopic),
		EventsDLQTopic: getEnvStr(EnvEventsDLQTopic, DefaultEventsDLQTopic),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}

	for name, d := range map[string]time.Duration{
		"MongoConnTimeout":    cfg.MongoConnTimeout,
		"RateLimitWindow":     cfg.RateLimitWindow,
		"RequestTimeout":      cfg.RequestTimeout,
		"IdempotencyTTL":      cfg.IdempotencyTTL,
		"ReadTimeout":         cfg.ReadTimeout,
		"WriteTimeout":        cfg.WriteTimeout,
		"IdleTimeout":         cfg.IdleTimeout,
		"ShutdownTimeout":     cfg.ShutdownTimeout,
		"HoldTTL":             cfg.HoldTTL,
		"StuckPaymentTimeout": cfg.StuckPaymentTimeout,
		"CancellationCutoff":  cfg.CancellationCutoff,
		"ProcessorTimeout":    cfg.ProcessorTimeout,
		"AdminLockoutWindow":  cfg.AdminLockoutWindow,
		"AdminSessionTTL":     cfg.AdminSessionTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", name, d))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.PaymentRetryLimit < 0 {
		errs = append(errs, fmt.Sprintf("PaymentRetryLimit cannot be negative, got: %d", cfg.PaymentRetryLimit))
	}
	if cfg.PlatformFeeBps < 0 || cfg.PlatformFeeBps > 10000 {
		errs = append(errs, fmt.Sprintf("PlatformFeeBps must be within [0, 10000], got: %d", cfg.PlatformFeeBps))
	}
	if cfg.TaxBps < 0 || cfg.TaxBps > 10000 {
		errs = append(errs, fmt.Sprintf("TaxBps must be within [0, 10000], got: %d", cfg.TaxBps))
	}
	if cfg.SweepBatchSize <= 0 {
		errs = append(errs, fmt.Sprintf("SweepBatchSize must be positive, got: %d", cfg.SweepBatchSize))
	}
	if cfg.SweepSchedule == "" {
		errs = append(errs, "SweepSchedule cannot be empty")
	}
	if cfg.AdminMaxFailures <= 0 {
		errs = append(errs, fmt.Sprintf("AdminMaxFailures must be positive, got: %d", cfg.AdminMaxFailures))
	}
	if cfg.SessionSealKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.SessionSealKey)
		if err != nil || len(key) != 32 {
			errs = append(errs, "SessionSealKey must be a base64-encoded 32-byte key")
		}
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"hold_ttl", cfg.HoldTTL,
		"stuck_payment_timeout", cfg.StuckPaymentTimeout,
		"payment_retry_limit", cfg.PaymentRetryLimit,
		"platform_fee_bps", cfg.PlatformFeeBps,
		"tax_bps", cfg.TaxBps,
		"cancellation_cutoff", cfg.CancellationCutoff,
		"sweep_batch_size", cfg.SweepBatchSize,
		"sweep_schedule", cfg.SweepSchedule,
		"processor_base_url", cfg.ProcessorBaseURL,
		"processor_api_key_set", cfg.ProcessorAPIKey != "",
		"processor_timeout", cfg.ProcessorTimeout,
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"scheduler_trigger_secret_set", cfg.SchedulerTriggerSecret != "",
		"admin_code_hash_set", cfg.AdminCodeHash != "",
		"admin_max_failures", cfg.AdminMaxFailures,
		"admin_lockout_window", cfg.AdminLockoutWindow,
		"admin_session_ttl", cfg.AdminSessionTTL,
		"session_seal_key_set", cfg.SessionSealKey != "",
		"events_topic", cfg.EventsTopic,
		"events_dlq_topic", cfg.EventsDLQTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
