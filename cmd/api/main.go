package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nikhilmehra04/stylehub-backend/api/controllers"
	"github.com/nikhilmehra04/stylehub-backend/api/routes"
	"github.com/nikhilmehra04/stylehub-backend/internal/addresses"
	"github.com/nikhilmehra04/stylehub-backend/internal/cart"
	"github.com/nikhilmehra04/stylehub-backend/internal/inventory"
	"github.com/nikhilmehra04/stylehub-backend/internal/orders"
	"github.com/nikhilmehra04/stylehub-backend/internal/payments"
	"github.com/nikhilmehra04/stylehub-backend/internal/products"
	"github.com/nikhilmehra04/stylehub-backend/internal/vton"
	"github.com/nikhilmehra04/stylehub-backend/internal/wishlist"
	"github.com/nikhilmehra04/stylehub-backend/pkg/config"
	"github.com/nikhilmehra04/stylehub-backend/pkg/db"
	"github.com/nikhilmehra04/stylehub-backend/pkg/lightx"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
	"github.com/nikhilmehra04/stylehub-backend/pkg/migrate"
	pkgredis "github.com/nikhilmehra04/stylehub-backend/pkg/redis"
	"github.com/nikhilmehra04/stylehub-backend/pkg/storage"
	"github.com/nikhilmehra04/stylehub-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient.DB()); err != nil {
		logg.Error(context.Background(), "failed to run dev schema sync", err)
		os.Exit(1)
	}

	redisClient, err := pkgredis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var intentProvider payments.IntentProvider
	if cfg.Stripe.APIKey != "" {
		stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap stripe", err)
			os.Exit(1)
		}
		intentProvider = stripeClient
	} else {
		logg.Warn(context.Background(), "stripe api key not set, card payments disabled")
	}

	conn := dbClient.DB()
	ledger := inventory.NewLedger(conn)

	cartService, err := cart.NewService(cart.NewRepository(conn), ledger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	orderService, err := orders.NewService(dbClient, orders.NewRepository(conn), cartService, ledger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	paymentService, err := payments.NewService(dbClient, payments.NewRepository(conn), intentProvider, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}
	productService, err := products.NewService(products.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}
	addressService, err := addresses.NewService(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create address service", err)
		os.Exit(1)
	}
	wishlistService, err := wishlist.NewService(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	var vtonService vton.Service
	if cfg.LightX.APIKey != "" {
		storageClient, err := storage.New(context.Background(), cfg.S3, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap object storage", err)
			os.Exit(1)
		}
		lightxClient, err := lightx.NewClient(cfg.LightX, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap lightx", err)
			os.Exit(1)
		}
		vtonService, err = vton.NewService(vton.NewRepository(conn), lightxClient, storageClient, vton.NewHTTPFetcher(), cfg.Vton, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create try-on service", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "lightx api key not set, try-on disabled")
	}

	router := routes.NewRouter(cfg, logg, redisClient,
		map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		routes.Services{
			Products:  productService,
			Cart:      cartService,
			Orders:    orderService,
			Payments:  paymentService,
			Addresses: addressService,
			Wishlist:  wishlistService,
			Vton:      vtonService,
		},
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	signalCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-signalCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "error during server shutdown", err)
		}
		if vtonService != nil {
			vtonService.Wait()
		}
	}

	logg.Info(ctx, "api server stopped")
}
