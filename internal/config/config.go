// Package config reads runtime settings from the environment.
// Callers load .env with godotenv before calling Load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultServerPort  = "8080"
	defaultServiceName = "restaurant-backoffice"
	defaultLogLevel    = "info"
)

type Config struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins []string
	JWTSecret      string
	RabbitMQURL    string // empty disables event publishing

	// OTLP/HTTP collector host:port; empty disables trace and log export.
	OtelEndpoint   string
	OtelAuthHeader string
	OtelInsecure   bool

	LogLevel    string
	ServiceName string
}

// Load reads the environment. DATABASE_URL is the only mandatory variable;
// binaries that need more call the matching Require method.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ServerPort:     envOr("SERVER_PORT", defaultServerPort),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		OtelEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelAuthHeader: os.Getenv("OTEL_AUTH_HEADER"),
		LogLevel:       strings.ToLower(envOr("LOG_LEVEL", defaultLogLevel)),
		ServiceName:    envOr("SERVICE_NAME", defaultServiceName),
	}

	if v := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid OTEL_EXPORTER_OTLP_INSECURE %q: %w", v, err)
		}
		cfg.OtelInsecure = insecure
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if _, err := strconv.Atoi(cfg.ServerPort); err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT %q: must be numeric", cfg.ServerPort)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: must be debug, info, warn or error", cfg.LogLevel)
	}
	return cfg, nil
}

// RequireJWTSecret fails when the HTTP server would start without a signing key.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
