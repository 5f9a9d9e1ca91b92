package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	webAdapter "restaurant-backoffice/internal/adapters/web"
	"restaurant-backoffice/internal/app"
	"restaurant-backoffice/internal/config"
	"restaurant-backoffice/internal/core"
	"restaurant-backoffice/internal/db"
	"restaurant-backoffice/internal/events"
	"restaurant-backoffice/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry, err := observability.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = telemetry.Shutdown(sctx)
	}()

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.ServiceName, telemetry.LoggerProvider)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	var publisher core.EventPublisher = core.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		mq, err := events.NewRabbitMQ(cfg.RabbitMQURL, logger)
		if err != nil {
			return err
		}
		defer mq.Close()
		publisher = mq
	} else {
		logger.Warn("RABBITMQ_URL not set, domain events are not published")
	}

	orders := core.NewOrderStore(pool, publisher, logger)
	machine := core.NewOrderStatusMachine(pool, publisher, logger)
	invoices := core.NewInvoiceService(pool, publisher, logger)
	inventory := core.NewInventoryService(pool, publisher, logger)
	svc := app.NewAppService(orders, machine, invoices, inventory, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
