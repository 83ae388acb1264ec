package main

import (
	adminhandler "staybook/internal/admin/handler"
	adminrepository "staybook/internal/admin/repository"
	adminservice "staybook/internal/admin/service"
	"staybook/internal/bookings/handler"
	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/service"
	"staybook/internal/bookings/validator"
	calendarrepository "staybook/internal/calendar/repository"
	calendarservice "staybook/internal/calendar/service"
	"staybook/internal/payments/processor"
	paymentsrepository "staybook/internal/payments/repository"
	paymentsservice "staybook/internal/payments/service"
	"staybook/pkg/app"
	"staybook/pkg/config"
	"staybook/pkg/contracts"
	"staybook/pkg/events"
	"staybook/pkg/kafka"
	kafkaconfig "staybook/pkg/kafka/config"
	"staybook/pkg/sealer"

	"github.com/joho/godotenv"
)

const ServiceName = "bookings"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	bookingHandler, adminHandler := initServices(cfg)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, bookingHandler, adminHandler)
	serverApp.Run()
}

func initServices(cfg *config.Config) (contracts.Handler, contracts.Handler) {
	blockRepo := calendarrepository.NewMongoBlockRepository(cfg)
	lockRepo := calendarrepository.NewListingLockRepository(cfg)
	calendar := calendarservice.NewCalendarService(blockRepo, lockRepo, cfg)

	processorClient := processor.NewClient(cfg.ProcessorBaseURL, cfg.ProcessorAPIKey, cfg.ProcessorTimeout)
	intentRepo := paymentsrepository.NewMongoIntentRepository(cfg)
	coordinator := paymentsservice.NewCoordinator(processorClient, intentRepo, cfg)

	publisher := initPublisher(cfg)

	bookingRepo := repository.NewMongoBookingRepository(cfg)
	listingRepo := repository.NewMongoListingRepository(cfg)
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingService := service.NewBookingService(
		bookingRepo,
		listingRepo,
		calendar,
		coordinator,
		publisher,
		bookingValidator,
		cfg,
	)

	tokenSealer, err := sealer.New(cfg.SessionSealKey)
	if err != nil {
		cfg.Log.Fatal("Invalid session seal key", "error", err)
	}
	attemptRepo := adminrepository.NewMongoAttemptRepository(cfg)
	gate := adminservice.NewGate(attemptRepo, tokenSealer, cfg)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return handler.NewBookingHandler(bookingService, calendar, coordinator, cfg.Log),
		adminhandler.NewAdminHandler(gate, cfg.Log)
}

func initPublisher(cfg *config.Config) *events.Publisher {
	kafkaCfg := kafkaconfig.Load()
	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	return events.NewPublisher(producer, cfg.Log)
}
