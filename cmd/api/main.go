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

	"freshcart/internal/cart"
	"freshcart/internal/config"
	"freshcart/internal/coupon"
	"freshcart/internal/database"
	"freshcart/internal/handler"
	"freshcart/internal/notify"
	"freshcart/internal/payment"
	"freshcart/internal/repository"
	"freshcart/internal/router"
	"freshcart/internal/service"
	"freshcart/internal/servicearea"

	"cloud.google.com/go/pubsub"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting freshcart API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool and schema
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := importServiceAreas(ctx, cfg, pool, logger); err != nil {
		return err
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)
	areaRepo := repository.NewServiceAreaRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	walletRepo := repository.NewWalletRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	gateway, err := newGateway(cfg.Payment, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	notifier, closeSink, err := newNotifier(ctx, cfg.Notify, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}
	defer closeSink()

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	cartService := service.NewCartService(cartRepo, productRepo, logger)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Orders:    orderRepo,
		Products:  productRepo,
		Carts:     cartRepo,
		Addresses: addressRepo,
		Coupons:   couponRepo,
		Wallets:   walletRepo,
		Areas:     servicearea.NewResolver(areaRepo, logger),
		Snapshots: cart.NewBuilder(cartRepo, productRepo, logger),
		Validator: coupon.NewValidator(couponRepo, logger),
		Gateway:   gateway,
		Notifier:  notifier,
	}, service.CheckoutOptions{
		Currency:              cfg.Checkout.Currency,
		FreeDeliveryThreshold: cfg.Checkout.FreeDeliveryThreshold,
		PendingOrderTTL:       cfg.Checkout.PendingOrderTTL,
		GatewayTimeout:        cfg.Checkout.GatewayTimeout,
		ReclaimBatchSize:      cfg.Checkout.ReclaimBatchSize,
	}, logger)

	// Start the reclaim sweeper
	sweeperCtx, stopSweeper := context.WithCancel(ctx)
	var sweeperDone sync.WaitGroup
	sweeperDone.Add(1)
	go func() {
		defer sweeperDone.Done()
		service.NewReclaimSweeper(orderService, cfg.Checkout.ReclaimInterval, logger).Run(sweeperCtx)
	}()

	// Initialize router
	mux := router.New(router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Cart:     handler.NewCartHandler(cartService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
	}, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.Checkout.GatewayTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Str("payment_gateway", gateway.Name()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		stopSweeper()
		sweeperDone.Wait()
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		stopSweeper()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		sweeperDone.Wait()

		if err := notifier.Close(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("notifier did not drain before shutdown")
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// importServiceAreas loads the configured seed files, from S3 when enabled
// with the local file system as fallback.
func importServiceAreas(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if len(cfg.ServiceArea.SeedFiles) == 0 {
		logger.Info().Msg("no service area seed files configured")
		return nil
	}

	var s3Loader servicearea.Loader
	if cfg.S3.Enabled {
		l, err := servicearea.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			s3Loader = l
		}
	} else {
		logger.Info().Msg("using local file system for service area files (S3 disabled)")
	}

	loader := servicearea.NewFallbackLoader(s3Loader, servicearea.NewFileLoader(logger), cfg.S3.Prefix, cfg.S3.Enabled, logger)
	importer := servicearea.NewImporter(loader, repository.NewServiceAreaRepository(pool, logger), logger)

	n, err := importer.Import(ctx, cfg.ServiceArea.SeedFiles)
	if err != nil {
		return fmt.Errorf("failed to import service areas: %w", err)
	}
	logger.Info().Int("postal_codes", n).Msg("service areas imported")
	return nil
}

func newGateway(cfg config.PaymentConfig, logger zerolog.Logger) (payment.Gateway, error) {
	switch cfg.Provider {
	case "stripe":
		return payment.NewStripeGateway(payment.StripeConfig{
			APIKey:        cfg.StripeAPIKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			SuccessURL:    cfg.SuccessURL,
			CancelURL:     cfg.CancelURL,
		}, logger)
	case "sandbox":
		return payment.NewSandboxGateway(cfg.SandboxSecret, logger)
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// newNotifier starts the event notifier. The returned func releases the
// sink's resources once the notifier has been closed.
func newNotifier(ctx context.Context, cfg config.NotifyConfig, logger zerolog.Logger) (*notify.Notifier, func(), error) {
	switch cfg.Provider {
	case "log":
		return notify.NewNotifier(notify.NewLogSink(logger), cfg.BufferSize, logger), func() {}, nil
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pubsub client: %w", err)
		}
		topic := client.Topic(cfg.TopicID)
		sink, err := notify.NewPubSubSink(topic)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		release := func() {
			topic.Stop()
			if err := client.Close(); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn().Err(err).Msg("failed to close pubsub client")
			}
		}
		return notify.NewNotifier(sink, cfg.BufferSize, logger), release, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify provider %q", cfg.Provider)
	}
}
