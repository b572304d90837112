package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ekmjt/MediQ/internal/adapters/cache"
	"github.com/ekmjt/MediQ/internal/adapters/database"
	"github.com/ekmjt/MediQ/internal/adapters/events"
	"github.com/ekmjt/MediQ/internal/adapters/memory"
	"github.com/ekmjt/MediQ/internal/api/handlers"
	"github.com/ekmjt/MediQ/internal/api/middleware"
	"github.com/ekmjt/MediQ/internal/api/routes"
	"github.com/ekmjt/MediQ/internal/application/services"
	"github.com/ekmjt/MediQ/internal/domain/providers"
	"github.com/ekmjt/MediQ/internal/domain/repositories"
	"github.com/ekmjt/MediQ/internal/domain/triage"
	"github.com/ekmjt/MediQ/internal/infrastructure/clients/classifier"
	"github.com/ekmjt/MediQ/internal/infrastructure/clients/postgres"
	"github.com/ekmjt/MediQ/internal/infrastructure/clients/redis"
	"github.com/ekmjt/MediQ/internal/infrastructure/observability"
	"github.com/ekmjt/MediQ/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger("mediq-api", cfg.Server.Env)
	logger := observability.GetLogger()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client, falling back to in-memory storage so
	// the service still runs in local development without Postgres
	var queueRepo repositories.QueueRepository
	var patientRepo repositories.PatientRepository
	var checkInLogRepo repositories.CheckInLogRepository

	pgClient, err := postgres.NewClient(&cfg.Database, func(attempt int, err error, nextDelay time.Duration) {
		logger.Warn().
			Int("attempt", attempt).
			Err(err).
			Dur("next_delay", nextDelay).
			Msg("Database connection failed, retrying")
	})
	if err != nil {
		logger.Warn().Err(err).Msg("PostgreSQL unavailable, using in-memory storage")
		queueRepo = memory.NewQueueAdapter()
		patientRepo = memory.NewPatientAdapter()
		checkInLogRepo = memory.NewCheckInLogAdapter()
	} else {
		defer pgClient.Close()
		logger.Info().Msg("PostgreSQL client initialized")
		queueRepo = database.NewQueueAdapter(pgClient)
		patientRepo = database.NewPatientAdapter(pgClient)
		checkInLogRepo = database.NewCheckInLogAdapter(pgClient)
	}

	// Initialize Redis for caching and cross-instance events. Without
	// it, both fall back to in-process implementations.
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus

	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, using in-process cache and event bus")
		cacheProvider = memory.NewCacheAdapter()
		eventBus = events.NewMemoryEventBus()
	} else {
		defer redisClient.Close()
		logger.Info().Msg("Redis client initialized")
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
	}

	// Initialize the severity classifier
	var severityClassifier providers.SeverityClassifier
	if cfg.Classifier.APIKey != "" {
		severityClassifier, err = classifier.NewClient(&cfg.Classifier)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize classifier client")
		}
		logger.Info().Str("model", cfg.Classifier.Model).Msg("Model-backed classifier initialized")
	} else {
		severityClassifier = classifier.NewRuleClassifier()
		logger.Info().Msg("No classifier API key set, using rule-based classifier")
	}

	// Initialize services
	weights := triage.Weights{
		Severity:       cfg.Triage.SeverityWeight,
		Wait:           cfg.Triage.WaitWeight,
		WaitCapMinutes: cfg.Triage.WaitCapMinutes,
	}
	queueService := services.NewQueueService(queueRepo, eventBus, metrics, weights, cfg.Triage.DampingFactor)
	triageService := services.NewTriageService(patientRepo, severityClassifier, queueService, cacheProvider)

	registry := events.NewChannelRegistry()
	checkInService := services.NewCheckInService(
		queueRepo,
		checkInLogRepo,
		queueService,
		registry,
		metrics,
		cfg.CheckIn.Interval,
		cfg.CheckIn.DeliveryTimeout,
	)
	checkInService.Start(ctx)

	// Initialize handlers
	triageHandler := handlers.NewTriageHandler(triageService)
	queueHandler := handlers.NewQueueHandler(queueService, checkInService)
	sseHandler := handlers.NewSSEHandler(eventBus, registry)

	cacheMiddleware := middleware.NewCacheMiddleware(cacheProvider)

	// Set up router
	router := routes.NewRouter(
		triageHandler,
		queueHandler,
		sseHandler,
		cacheMiddleware,
		metrics,
	)
	handler := router.SetupRoutes()

	// Create HTTP server. WriteTimeout stays zero so long-lived event
	// streams are not cut off.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down")

	checkInService.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing event bus")
		}
	}

	logger.Info().Msg("Server stopped")
}
