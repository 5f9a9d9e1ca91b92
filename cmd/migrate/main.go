package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"restaurant-backoffice/internal/config"
	"restaurant-backoffice/internal/db"
	"restaurant-backoffice/migrations"
)

const usage = "Usage: migrate [up|down|version]"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	checkConnection(cfg.DatabaseURL)

	switch cmd {
	case "up":
		if err := migrations.Up(cfg.DatabaseURL); err != nil {
			log.Fatalf("[APPLY] %v", err)
		}
		reportVersion(cfg.DatabaseURL)
		log.Println("[DONE] All migrations processed.")

	case "down":
		if err := migrations.Down(cfg.DatabaseURL); err != nil {
			log.Fatalf("[ROLLBACK] %v", err)
		}
		log.Println("[DONE] All migrations rolled back.")

	case "version":
		reportVersion(cfg.DatabaseURL)

	default:
		log.Fatalf("Unknown command: %s\n%s", cmd, usage)
	}
}

func checkConnection(url string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, url)
	if err != nil {
		log.Fatalf("[CONNECT] %v", err)
	}
	pool.Close()
	log.Println("[CONNECT] success")
}

func reportVersion(url string) {
	version, dirty, err := migrations.Version(url)
	if err != nil {
		log.Fatalf("[VERSION] %v", err)
	}
	if dirty {
		log.Fatalf("[VERSION] schema version %d is dirty; fix the failed migration and force the version", version)
	}
	log.Printf("[VERSION] %d", version)
}
