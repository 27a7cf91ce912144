package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify-order-tracking/internal/application"
	"shopify-order-tracking/internal/application/webhook_handlers"
	"shopify-order-tracking/internal/config"
	apiinfra "shopify-order-tracking/internal/infrastructure/api"
	"shopify-order-tracking/internal/infrastructure/encryption"
	"shopify-order-tracking/internal/infrastructure/repository"
	"shopify-order-tracking/internal/infrastructure/session"
	shopifyinfra "shopify-order-tracking/internal/infrastructure/shopify"
	"shopify-order-tracking/internal/ports"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// store is the persistence backend selected by STORE_DRIVER
type store struct {
	shops   ports.ShopRepository
	charges ports.ChargeRepository
	close   func(ctx context.Context) error
}

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger = logger.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open store")
	}
	defer func() {
		if err := db.close(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Failed to close store")
		}
	}()
	logger.Info().Str("driver", cfg.StoreDriver).Msg("Store ready")

	sessions, err := openSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}
	shopifyClient := shopifyinfra.NewClient(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, cfg.ShopifyAPIVersion, logger)
	tokenManager := shopifyinfra.NewTokenManager(shopifyClient, logger)
	webhookVerifier := shopifyinfra.NewWebhookVerifier(cfg.ShopifyAPISecret)

	// Initialize application services
	billingConfig := application.BillingConfig{
		Plans:     cfg.Plans(),
		AppURL:    cfg.AppURL,
		AppHandle: cfg.ShopifyAppHandle,
		Test:      cfg.BillingTest,
	}
	credentialsService := application.NewCredentialsService(
		db.shops,
		sessions,
		shopifyClient,
		encryptionService,
		cfg.ShopifyScopes,
		cfg.AppURL,
		logger,
	)
	trackingService := application.NewTrackingService(
		credentialsService,
		tokenManager,
		application.NewOrderResolver(shopifyClient, logger),
		shopifyClient,
		logger,
	)
	billingService := application.NewBillingService(credentialsService, db.charges, shopifyClient, billingConfig, logger)
	reconciler := application.NewBillingReconciler(credentialsService, db.charges, shopifyClient, billingConfig, logger)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(logger, credentialsService))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewShopRedactHandler(logger, db.shops, db.charges))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(logger))

	router := apiinfra.NewRouter(apiinfra.Dependencies{
		Credentials: credentialsService,
		Tracking:    trackingService,
		Billing:     billingService,
		Reconciler:  reconciler,
		Webhooks:    webhookDispatcher,
		Verifier:    webhookVerifier,
		EnvPresence: cfg.EnvPresence(),
		SwaggerFile: "./docs/swagger.json",
		Logger:      logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		repo := repository.NewMongoRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &store{shops: repo, charges: repo, close: client.Disconnect}, nil

	case config.StoreSQLite, config.StorePostgres:
		driver := repository.DriverSQLite
		if cfg.StoreDriver == config.StorePostgres {
			driver = repository.DriverPostgres
		}
		repo, err := repository.NewSQLRepository(driver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &store{
			shops:   repo,
			charges: repo,
			close:   func(context.Context) error { return repo.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

// openSessionStore uses Redis when REDIS_URL is set and an in-process store otherwise
func openSessionStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (ports.SessionStore, error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, OAuth state is kept in memory and lost on restart")
		return session.NewMemoryStore(), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	store := session.NewRedisStore(redis.NewClient(opts))
	if err := store.Ping(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
