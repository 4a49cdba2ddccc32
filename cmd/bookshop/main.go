package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/go_bookshop/internal/cache"
	"github.com/fjod/go_bookshop/internal/catalog"
	"github.com/fjod/go_bookshop/internal/config"
	"github.com/fjod/go_bookshop/internal/favorites"
	h "github.com/fjod/go_bookshop/internal/http"
	"github.com/fjod/go_bookshop/internal/payment"
	"github.com/fjod/go_bookshop/internal/publisher"
	"github.com/fjod/go_bookshop/internal/repository"
	"github.com/fjod/go_bookshop/internal/service"
	"github.com/fjod/go_bookshop/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config:\n%v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("bookshop stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	cred := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		SSLMode:           cfg.DBSSLMode,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	repo, err := repository.NewRepository(ctx, cred)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.RunMigrations(cred); err != nil {
		return err
	}
	log.Info("connected to postgres", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	// MongoDB
	mongoDB, disconnectMongo, err := favorites.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer disconnectMongo()
	favoriteStore := favorites.NewMongoStore(mongoDB)
	if err := favoriteStore.CreateIndexes(ctx); err != nil {
		return err
	}
	log.Info("connected to mongodb", zap.String("db", cfg.MongoDB))

	// Redis is optional; without it every cart read goes to postgres.
	var cartCache cache.CartCache = cache.Noop{}
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		cartCache = cache.NewRedisCache(redisClient, cfg.CartCacheTTL)
		log.Info("redis cart cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	books := catalog.NewClient(catalog.Config{
		BaseURL: cfg.CatalogBaseURL,
		APIKey:  cfg.CatalogAPIKey,
		Timeout: cfg.CatalogTimeout,
	}, log.Named("catalog"))
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey)

	successURL, cancelURL := cfg.CheckoutURLs(payment.SessionIDPlaceholder)
	cartService := service.NewCartService(repo, cartCache, log.Named("cart"))
	checkoutService := service.NewCheckoutService(repo, repo, gateway, cartService, service.CheckoutConfig{
		Currency:         cfg.Currency,
		SuccessURL:       successURL,
		CancelURL:        cancelURL,
		ProcessorTimeout: cfg.PaymentTimeout,
	}, log.Named("checkout"))
	orderService := service.NewOrderService(repo)
	favoriteService := service.NewFavoriteService(favoriteStore, books, log.Named("favorites"))
	profileService := service.NewProfileService(repo)

	pollerCfg := publisher.Config{
		Brokers:    cfg.KafkaBrokers,
		Topic:      cfg.KafkaTopic,
		SessionTTL: cfg.CheckoutSessionTTL,
	}
	var poller *publisher.OutboxPoller
	if len(cfg.KafkaBrokers) > 0 {
		poller = publisher.NewOutboxPoller(repo, checkoutService, pollerCfg, log.Named("outbox"))
		log.Info("outbox publisher started", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	} else {
		poller = publisher.NewSessionExpirer(repo, checkoutService, pollerCfg, log.Named("outbox"))
		log.Warn("KAFKA_BROKERS not set, order events stay in the outbox")
	}
	defer poller.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(ctx)
	}()

	router := h.NewRouter(h.Handlers{
		Books:     h.NewBookHandler(books, cfg.RequestTimeout, log),
		Cart:      h.NewCartHandler(cartService, cfg.RequestTimeout, log),
		Checkout:  h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout, log),
		Orders:    h.NewOrdersHandler(orderService, cfg.RequestTimeout, log),
		Favorites: h.NewFavoritesHandler(favoriteService, cfg.RequestTimeout, log),
		Profile:   h.NewProfileHandler(profileService, cfg.RequestTimeout, log),
	}, h.RouterConfig{
		JWTSecret:          []byte(cfg.JWTSecret),
		JWTIssuer:          cfg.JWTIssuer,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Ready: func(ctx context.Context) error {
			if err := repo.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := mongoDB.Client().Ping(ctx, nil); err != nil {
				return fmt.Errorf("mongodb: %w", err)
			}
			if redisClient != nil {
				if err := redisClient.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "bookshop"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("bookshop starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	wg.Wait()

	log.Info("server exited")
	return nil
}
