package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/service"
	"staybook/internal/bookings/validator"
	calendarrepository "staybook/internal/calendar/repository"
	calendarservice "staybook/internal/calendar/service"
	"staybook/internal/health"
	"staybook/internal/payments/processor"
	paymentsrepository "staybook/internal/payments/repository"
	paymentsservice "staybook/internal/payments/service"
	"staybook/internal/reconciler"
	"staybook/pkg/config"
	"staybook/pkg/events"
	"staybook/pkg/kafka"
	kafkaconfig "staybook/pkg/kafka/config"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
)

const ServiceName = "reconciler"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Reconciler service")

	jobs := initJobs(cfg)
	scheduler := reconciler.NewScheduler(jobs, cfg.Log, cfg)
	scheduler.Start()

	server := startTriggerServer(cfg, jobs)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	cfg.Log.Info("Shutdown signal received, stopping scheduler")
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	if err := server.Close(); err != nil {
		cfg.Log.Error("Trigger server close failed", "error", err)
	}
	cfg.Log.Info("Reconciler stopped gracefully")
}

func initJobs(cfg *config.Config) *reconciler.Jobs {
	blockRepo := calendarrepository.NewMongoBlockRepository(cfg)
	lockRepo := calendarrepository.NewListingLockRepository(cfg)
	calendar := calendarservice.NewCalendarService(blockRepo, lockRepo, cfg)

	processorClient := processor.NewClient(cfg.ProcessorBaseURL, cfg.ProcessorAPIKey, cfg.ProcessorTimeout)
	intentRepo := paymentsrepository.NewMongoIntentRepository(cfg)
	coordinator := paymentsservice.NewCoordinator(processorClient, intentRepo, cfg)

	kafkaCfg := kafkaconfig.Load()
	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	publisher := events.NewPublisher(producer, cfg.Log)

	bookingRepo := repository.NewMongoBookingRepository(cfg)
	listingRepo := repository.NewMongoListingRepository(cfg)
	bookingService := service.NewBookingService(
		bookingRepo,
		listingRepo,
		calendar,
		coordinator,
		publisher,
		validator.NewBookingValidator(cfg.Log),
		cfg,
	)

	return reconciler.NewJobs(bookingService, calendar, cfg.Log, cfg)
}

// startTriggerServer exposes the manual sweep trigger plus health endpoints
// on the service port. The reconciler has no other HTTP surface, so it skips
// the full middleware stack.
func startTriggerServer(cfg *config.Config, jobs *reconciler.Jobs) *http.Server {
	router := httprouter.New()
	health.NewHealthHandler(cfg.Client.Mongo, cfg.Log).RegisterRoutes(router)
	reconciler.NewTriggerHandler(jobs, cfg.SchedulerTriggerSecret, cfg.Log).RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		cfg.Log.Info("Starting trigger server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			cfg.Log.Error("Trigger server failed", "error", err)
		}
	}()

	return server
}
