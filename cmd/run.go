package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"girinhas/api"
	"girinhas/application"
	"girinhas/config"
	"girinhas/database"
	"girinhas/domain/interfaces"
	"girinhas/infrastructure"
	"girinhas/metrics"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting girinhas marketplace...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Initialize event publishing. Without NATS the marketplace still runs,
	// events just stay local.
	var eventPublisher interfaces.EventPublisher = infrastructure.NewNoopEventPublisher()
	var natsClient *infrastructure.NATSClient
	if len(cfg.NATSServers) > 0 {
		natsClient = infrastructure.NewNATSClient(strings.Join(cfg.NATSServers, ","))
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer natsClient.Close()

		natsPublisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
		if err := natsPublisher.EnsureDomainEventStream(); err != nil {
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		eventPublisher = natsPublisher
		log.Info("NATS event publishing enabled")
	} else {
		log.Warn("NATS_SERVERS not set, event publishing disabled")
	}

	// Initialize the queue position cache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()
		log.Info("Redis position cache enabled")
	} else {
		log.Warn("REDIS_ADDR not set, position cache disabled")
	}
	positionCache := infrastructure.NewPositionCache(redisClient, cfg.PositionCacheTTL)

	// Initialize metrics
	metrics.Init()

	// Initialize the application services
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)
	tradeConfig := application.TradeConfig{
		ReservationTTL: cfg.ReservationTTL,
		LotLifetime:    cfg.LotLifetime,
		CodeLength:     cfg.ConfirmationCodeLength,
		SignupBonus:    cfg.SignupBonus,
	}
	tradeService := application.NewTradeService(uowFactory, positionCache, tradeConfig)

	// Start the expiration worker
	worker := application.NewExpirationWorker(uowFactory, cfg.SweepInterval, tradeConfig)
	stopWorker := worker.Start(ctx)
	defer stopWorker()

	// Start the HTTP server
	tokens := api.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	router := api.NewRouter(api.NewHandler(tradeService, tokens), tokens)
	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"port":        cfg.HTTPPort,
			"environment": cfg.Environment,
		}).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	log.Info("Shutdown completed")
	return nil
}
