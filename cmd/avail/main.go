package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/availhq/avail/internal/ai"
	"github.com/availhq/avail/internal/api"
	"github.com/availhq/avail/internal/config"
	"github.com/availhq/avail/internal/kafka"
	"github.com/availhq/avail/internal/repository"
	"github.com/availhq/avail/internal/repository/memory"
	"github.com/availhq/avail/internal/repository/postgres"
	"github.com/availhq/avail/internal/repository/redis"
	"github.com/availhq/avail/internal/service"
	"github.com/availhq/avail/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env for local development; the file is optional
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	ctx := context.Background()

	repo, cleanup, err := setupRepository(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize repository: %v", err)
	}
	defer cleanup()

	// Initialize the service layer
	serviceOpts := []service.BookingServiceOption{}
	kafkaConfig := config.GetKafkaConfig()
	if kafkaConfig.Enabled() {
		producer := kafka.NewProducer(kafkaConfig.Brokers, kafkaConfig.BookingTopic)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Printf("Error closing Kafka producer: %v", err)
			}
		}()
		serviceOpts = append(serviceOpts, service.WithEventProducer(producer))
		log.Printf("Publishing booking events to %s", kafkaConfig.BookingTopic)
	}

	bookingService := service.NewBookingService(repo, serviceOpts...)
	analyticsService := service.NewAnalyticsService(repo)

	var assistant *service.Assistant
	if aiConfig := config.GetAIConfig(); aiConfig.IsValid() {
		assistant = service.NewAssistant(ai.NewClient(aiConfig))
		log.Printf("Booking assistant enabled using model %s", aiConfig.Model)
	} else {
		assistant = service.NewAssistant(nil)
		log.Println("Booking assistant disabled, AI_API_KEY not set")
	}

	// Set up web UI routes
	serverConfig := config.GetServerConfig()
	webHandler, err := web.NewHandler(repo, bookingService, analyticsService, assistant, serverConfig)
	if err != nil {
		log.Fatalf("Failed to initialize web handler: %v", err)
	}

	// Push a live update to browsers on every booking change
	bookingService.RegisterUpdateCallback(webHandler.NotifyBookingUpdate)

	// Set up API and web UI routes
	mux := api.SetupRoutes(repo, bookingService, analyticsService, assistant)
	webHandler.SetupRoutes(mux)

	// Configure the HTTP server
	server := &http.Server{
		Addr:         ":" + serverConfig.Port,
		Handler:      web.WrapMuxWithMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disable write timeout for SSE connections
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		log.Printf("Starting avail server on port %s", serverConfig.Port)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Error starting server: %v", err)

	case <-shutdown:
		log.Println("Shutting down server...")

		// Close SSE connections first so Shutdown doesn't wait for them
		webHandler.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			log.Fatalf("Error shutting down server: %v", err)
		}

		log.Println("Server gracefully stopped")
	}
}

// setupRepository builds the repository selected by STORAGE_BACKEND and
// returns it with a cleanup function for its connections
func setupRepository(ctx context.Context) (repository.Repository, func(), error) {
	storageConfig := config.GetStorageConfig()

	switch storageConfig.Backend {
	case "postgres":
		pgConfig := config.GetPostgresConfig()
		repo, err := postgres.NewRepository(ctx, pgConfig)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.Migrate(ctx, pgConfig.MigrationsDir); err != nil {
			repo.Close()
			return nil, nil, err
		}
		log.Println("Using Postgres repository")
		return repo, repo.Close, nil

	case "redis":
		repo, err := redis.NewRepository(config.GetRedisConfig())
		if err != nil {
			return nil, nil, err
		}
		log.Println("Using Redis repository")
		return repo, func() {
			if err := repo.Close(); err != nil {
				log.Printf("Error closing Redis connection: %v", err)
			}
		}, nil

	case "memory":
		log.Println("Using in-memory repository, data will not survive restarts")
		return memory.NewRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", storageConfig.Backend)
	}
}
