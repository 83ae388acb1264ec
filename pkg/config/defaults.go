package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "staybook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultHoldTTL             = 30 * time.Minute
	DefaultStuckPaymentTimeout = 2 * time.Hour
	DefaultPaymentRetryLimit   = 1
	DefaultPlatformFeeBps      = 1200 // 12%
	DefaultTaxBps              = 850  // 8.5%
	DefaultCancellationCutoff  = 24 * time.Hour

	DefaultSweepBatchSize = 100
	DefaultSweepSchedule  = "*/5 * * * *"

	DefaultProcessorBaseURL = "http://localhost:9090"
	DefaultProcessorTimeout = 15 * time.Second

	DefaultAdminMaxFailures   = 5
	DefaultAdminLockoutWindow = 15 * time.Minute
	DefaultAdminSessionTTL    = 30 * time.Minute

	DefaultEventsTopic    = "staybook.booking.events"
	DefaultEventsDLQTopic = "staybook.booking.events.dlq"

	DefaultLogLevel = "info"

	DefaultPaginationLimit = 100
)
