package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/example/ride-booking/internal/booking"
	"github.com/example/ride-booking/internal/bookingstore"
	"github.com/example/ride-booking/internal/config"
	"github.com/example/ride-booking/internal/dispatch"
	"github.com/example/ride-booking/internal/drivers"
	"github.com/example/ride-booking/internal/events"
	"github.com/example/ride-booking/internal/fare"
	httpapi "github.com/example/ride-booking/internal/http"
	"github.com/example/ride-booking/internal/logging"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/payments"
	"github.com/example/ride-booking/internal/routing"
	"github.com/example/ride-booking/internal/rowstore"
	"github.com/example/ride-booking/internal/session"
	"github.com/example/ride-booking/internal/users"
)

func main() {
	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		slog.Error("load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) error {
	opener, err := rowstore.NewOpener(ctx, rowstore.Options{
		Backend:               cfg.StoreBackend,
		SheetsCredentialsFile: cfg.SheetsCredentialsFile,
		PGDSN:                 cfg.PGDSN,
		RedisAddr:             cfg.RedisAddr,
		RedisPassword:         cfg.RedisPassword,
	})
	if err != nil {
		return err
	}
	defer opener.Close()

	if db := opener.DB(); db != nil && cfg.RunMigrations {
		b, err := os.ReadFile(filepath.Join("migrations", "001_create_rows.sql"))
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(b)); err != nil {
			return err
		}
		logger.Info("migration applied", "file", "001_create_rows.sql")
	}

	store, err := bookingstore.New(ctx, opener.Table("bookings", cfg.SheetsBookingsID), logger)
	if err != nil {
		return err
	}
	dir, err := users.NewDirectory(ctx, opener.Table("users", cfg.SheetsUsersID), logger)
	if err != nil {
		return err
	}

	var (
		router   routing.Resolver
		geocoder routing.Geocoder
	)
	switch cfg.RoutingProvider {
	case "osrm":
		router = routing.NewOSRMClient(cfg.OSRMEndpoint, cfg.RouteTimeout)
	default:
		router = routing.NewORSClient(cfg.ORSEndpoint, cfg.ORSAPIKey, cfg.RouteTimeout)
	}
	if cfg.ORSAPIKey != "" {
		geocoder = routing.NewORSClient(cfg.ORSEndpoint, cfg.ORSAPIKey, cfg.GeocodeTimeout)
	}
	router = routing.Instrumented{Next: routing.Cached{Next: router, Cache: routing.NewCache(cfg.RouteCacheTTL)}}
	locator := routing.NewIPLocator(cfg.IPInfoEndpoint, cfg.GeocodeTimeout)

	pool := drivers.NewPool(rand.New(rand.NewSource(time.Now().UnixNano())), drivers.DefaultDrivers()...)
	fares := fare.NewCalculator(nil)

	var pay booking.Payments = payments.Noop{}
	if cfg.StripeAPIKey != "" {
		pay = payments.NewStripeClient(cfg.StripeAPIKey, cfg.FareCurrency)
	}

	var pub events.Publisher = events.Discard{}
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		pub = producer
	}

	ws := dispatch.NewWSRegistry()
	notifiers := []dispatch.Notifier{ws}
	if cfg.DriverWebhookURL != "" {
		notifiers = append(notifiers, dispatch.NewWebhook(cfg.DriverWebhookURL))
	}

	sessions := session.NewController(dir, func(u models.User) *booking.Session {
		return booking.New(u, booking.Deps{
			Fares:        fares,
			Drivers:      pool,
			Router:       router,
			Geocoder:     geocoder,
			Locator:      locator,
			Store:        store,
			Payments:     pay,
			Publisher:    pub,
			Notifier:     dispatch.Multi{Notifiers: notifiers, Logger: logger},
			CancelWindow: cfg.CancelWindow,
			Logger:       logger,
		})
	}, []byte(cfg.JWTSecret), cfg.SessionTTL, logger)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewServer(httpapi.Options{
			Sessions:        sessions,
			History:         store,
			Fares:           fares,
			WS:              ws,
			SuggestDebounce: cfg.SuggestDebounce,
			Logger:          logger,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ride-booking listening", "addr", cfg.HTTPAddr, "store", cfg.StoreBackend, "routing", cfg.RoutingProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
