// Package main is the entry point for the unit booking API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pkordes/unit-booking/api"
	"github.com/pkordes/unit-booking/internal/config"
	"github.com/pkordes/unit-booking/internal/events"
	"github.com/pkordes/unit-booking/internal/handler"
	"github.com/pkordes/unit-booking/internal/metrics"
	"github.com/pkordes/unit-booking/internal/middleware"
	"github.com/pkordes/unit-booking/internal/repo"
	"github.com/pkordes/unit-booking/internal/service"
	"github.com/pkordes/unit-booking/migrations"
)

func main() {
	os.Exit(run())
}

// run wires the server and blocks until it stops. Deferred cleanup runs before
// main exits with the returned status code.
func run() int {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		return 1
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Storage ----------------------------------------------------------
	store, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to open booking store", "driver", cfg.StorageDriver, "error", err)
		return 1
	}
	defer closeStore()

	// --- Metrics & events -------------------------------------------------
	opts := []service.Option{service.WithLogger(logger)}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		opts = append(opts, service.WithOutcomeRecorder(m))
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			slog.Error("failed to create event publisher", "error", err)
			return 1
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				slog.Warn("event publisher close", "error", err)
			}
		}()
		opts = append(opts, service.WithPublisher(publisher))
		slog.Info("booking events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	bookings := service.NewBookingService(store, opts...)
	exports := service.NewExportService(store)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit → metrics.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	if m != nil {
		r.Use(middleware.NewMetricsHandler(m))
		r.Handle("/metrics", m.Handler())
	}

	srvHandler := handler.NewServer(bookings, exports, api.OpenAPI, logger)
	r.Mount("/", handler.Handler(srvHandler))

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		slog.Error("server error", "error", err)
		return 1
	}
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		return 1
	}
	slog.Info("server stopped")
	return 0
}

// openStore builds the booking store selected by cfg.StorageDriver and returns
// a function releasing its resources.
func openStore(ctx context.Context, cfg config.Config) (repo.BookingStore, func(), error) {
	if cfg.StorageDriver == config.DriverMemory {
		slog.Warn("using in-memory booking store; data is lost on restart")
		return repo.NewMemoryBookingRepo(), func() {}, nil
	}

	// New() does not open connections immediately; the ping below does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	slog.Info("database connection established")

	if cfg.MigrateOnStart {
		// goose drives database/sql; borrow a *sql.DB view of the pool.
		db := stdlib.OpenDBFromPool(pool)
		applied, err := migrations.Up(ctx, db)
		_ = db.Close()
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("migrations applied", "count", applied)
	}

	return repo.NewBookingRepo(pool), pool.Close, nil
}
