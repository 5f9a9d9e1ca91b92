package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"restaurant-backoffice/internal/adapters/cli"
	"restaurant-backoffice/internal/app"
	"restaurant-backoffice/internal/config"
	"restaurant-backoffice/internal/core"
	"restaurant-backoffice/internal/db"
	"restaurant-backoffice/internal/events"
	"restaurant-backoffice/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Operator output goes to stdout; the CLI only logs warnings and errors.
	logger, err := observability.NewLogger("warn", cfg.ServiceName, nil)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	var publisher core.EventPublisher = core.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		mq, err := events.NewRabbitMQ(cfg.RabbitMQURL, logger)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer mq.Close()
		publisher = mq
	}

	orders := core.NewOrderStore(pool, publisher, logger)
	svc := app.NewAppService(
		orders,
		core.NewOrderStatusMachine(pool, publisher, logger),
		core.NewInvoiceService(pool, publisher, logger),
		core.NewInventoryService(pool, publisher, logger),
		logger,
	)

	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
