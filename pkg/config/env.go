package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvHoldTTL             = "HOLD_TTL"
	EnvStuckPaymentTimeout = "STUCK_PAYMENT_TIMEOUT"
	EnvPaymentRetryLimit   = "PAYMENT_RETRY_LIMIT"
	EnvPlatformFeeBps      = "PLATFORM_FEE_BPS"
	EnvTaxBps              = "TAX_BPS"
	EnvCancellationCutoff  = "CANCELLATION_CUTOFF"

	EnvSweepBatchSize = "SWEEP_BATCH_SIZE"
	EnvSweepSchedule  = "SWEEP_SCHEDULE"

	EnvProcessorBaseURL = "PROCESSOR_BASE_URL"
	EnvProcessorAPIKey  = "PROCESSOR_API_KEY"
	EnvProcessorTimeout = "PROCESSOR_TIMEOUT"

	EnvPaymentWebhookSecret   = "PAYMENT_WEBHOOK_SECRET"
	EnvSchedulerTriggerSecret = "SCHEDULER_TRIGGER_SECRET"

	EnvAdminCodeHash      = "ADMIN_CODE_HASH"
	EnvAdminMaxFailures   = "ADMIN_MAX_FAILURES"
	EnvAdminLockoutWindow = "ADMIN_LOCKOUT_WINDOW"
	EnvAdminSessionTTL    = "ADMIN_SESSION_TTL"
	EnvSessionSealKey     = "SESSION_SEAL_KEY"

	EnvEventsTopic    = "EVENTS_TOPIC"
	EnvEventsDLQTopic = "EVENTS_DLQ_TOPIC"
)
