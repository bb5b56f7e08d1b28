package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/subwatch/backend/internal/api"
	"github.com/subwatch/backend/internal/auth"
	"github.com/subwatch/backend/internal/config"
	"github.com/subwatch/backend/internal/domain"
	"github.com/subwatch/backend/internal/metrics"
	"github.com/subwatch/backend/internal/play"
	"github.com/subwatch/backend/internal/pubsub"
	"github.com/subwatch/backend/internal/store"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Starting SubWatch API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
	)

	ctx := context.Background()

	// Display timezone for localized timestamp rendering
	loc, err := time.LoadLocation(cfg.Display.Timezone)
	if err != nil {
		logger.Warn("Invalid timezone, falling back to local", zap.String("timezone", cfg.Display.Timezone))
		loc = time.Local
	}

	// Initialize record collections
	cols, closeStores, err := buildCollections(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer closeStores()

	// Google client options shared by the Play and Pub/Sub clients
	var googleOpts []option.ClientOption
	if cfg.Google.CredentialsJSON != "" {
		googleOpts = append(googleOpts, option.WithCredentialsJSON([]byte(cfg.Google.CredentialsJSON)))
	} else if cfg.Google.CredentialsFile != "" {
		googleOpts = append(googleOpts, option.WithCredentialsFile(cfg.Google.CredentialsFile))
	}

	// Play Developer API (enrichment collaborator)
	var subscriptionAPI domain.SubscriptionAPI
	if cfg.Google.PackageName != "" {
		playClient, err := play.NewClient(ctx, googleOpts...)
		if err != nil {
			logger.Warn("Play Developer API unavailable - enrichment is disabled", zap.Error(err))
		} else {
			subscriptionAPI = playClient
			logger.Info("Play Developer API client initialized")
		}
	} else {
		logger.Warn("GOOGLE_PLAY_PACKAGE_NAME not set - enrichment is disabled")
	}

	// Pub/Sub (messaging collaborator)
	var source domain.MessageSource
	var pubsubClient *pubsub.Client
	if cfg.HasPubSub() {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.Google.ProjectID, cfg.Google.SubscriptionID, logger, googleOpts...)
		if err != nil {
			logger.Warn("Pub/Sub unavailable - pull endpoints are disabled", zap.Error(err))
		} else {
			source = pubsubClient
			logger.Info("Pub/Sub client initialized",
				zap.String("project", cfg.Google.ProjectID),
				zap.String("subscription", cfg.Google.SubscriptionID),
			)
		}
	} else {
		logger.Warn("Pub/Sub not configured - set GOOGLE_CLOUD_PROJECT and PUBSUB_SUBSCRIPTION to enable pull")
	}

	// Metrics
	m := metrics.New()

	// Live notification feed
	eventHub := api.NewEventHub(logger)
	go eventHub.Run()

	// Initialize services
	notificationService := domain.NewNotificationService(cols.push, cols.pull, source, eventHub, m, logger)
	enrichmentService := domain.NewEnrichmentService(cols.pull, cols.subs, subscriptionAPI, loc, m, logger)

	// Operator auth
	authManager := auth.NewManager(cfg.Auth.Secret)
	if authManager.Enabled() {
		logger.Info("Operator auth is enabled")
	} else {
		logger.Warn("Operator auth is NOT enabled - set AUTH_SECRET to guard operator routes")
	}

	// Initialize handlers
	pushHandler := api.NewPushHandler(notificationService, logger)
	pullHandler := api.NewPullHandler(notificationService, logger)
	subscriptionHandler := api.NewSubscriptionHandler(enrichmentService, logger)
	entryHandler := api.NewEntryHandler(cols.entries, logger)
	statusHandler := api.NewStatusHandler(notificationService, enrichmentService, cols.entries, cfg, logger)
	healthHandler := api.NewHealthHandler()

	// Initialize router
	router := api.NewRouter(pushHandler, pullHandler, subscriptionHandler, entryHandler,
		statusHandler, healthHandler, eventHub, m.Handler(), authManager, logger)
	r := router.Setup()

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the streaming listener before closing transports
	notificationService.StopListening()
	if pubsubClient != nil {
		_ = pubsubClient.Close()
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// collections groups the four persisted record collections.
type collections struct {
	push    store.Collection[domain.Notification]
	pull    store.Collection[domain.Notification]
	subs    store.Collection[domain.EnrichedSubscription]
	entries store.Collection[domain.Entry]
}

// buildCollections wires the configured persistence backend. The returned
// func releases backend resources.
func buildCollections(ctx context.Context, cfg *config.Config) (*collections, func(), error) {
	if cfg.Storage.Backend == "postgres" {
		pool, err := initDatabase(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		push, err := store.NewPostgresCollection[domain.Notification](ctx, pool, "push_notifications")
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		pull, err := store.NewPostgresCollection[domain.Notification](ctx, pool, "pull_notifications")
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		subs, err := store.NewPostgresCollection[domain.EnrichedSubscription](ctx, pool, "subscriptions")
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		entries, err := store.NewPostgresCollection[domain.Entry](ctx, pool, "entries")
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return &collections{push: push, pull: pull, subs: subs, entries: entries}, pool.Close, nil
	}

	dir := cfg.Storage.DataDir
	push, err := store.NewFileCollection[domain.Notification](filepath.Join(dir, "push_notifications.json"))
	if err != nil {
		return nil, nil, err
	}
	pull, err := store.NewFileCollection[domain.Notification](filepath.Join(dir, "pull_notifications.json"))
	if err != nil {
		return nil, nil, err
	}
	subs, err := store.NewFileCollection[domain.EnrichedSubscription](filepath.Join(dir, "subscriptions.json"))
	if err != nil {
		return nil, nil, err
	}
	entries, err := store.NewFileCollection[domain.Entry](filepath.Join(dir, "entries.json"))
	if err != nil {
		return nil, nil, err
	}
	return &collections{push: push, pull: pull, subs: subs, entries: entries}, func() {}, nil
}

func initDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
