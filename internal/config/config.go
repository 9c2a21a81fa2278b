// Package config loads server settings from LEDGER_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
)

type Config struct {
	DatabaseURL string     // LEDGER_DATABASE_URL (required)
	HTTPAddr    string     // LEDGER_HTTP_ADDR (default ":8080")
	NATSURL     string     // LEDGER_NATS_URL (optional, empty = no events)
	AuthToken   string     // LEDGER_AUTH_TOKEN (optional, empty = auth disabled)
	LogLevel    slog.Level // LEDGER_LOG_LEVEL (default "info")

	// ExportLocale formats numbers, dates and headers of CSV exports when a
	// request does not name one. LEDGER_EXPORT_LOCALE (default "pt-BR").
	ExportLocale language.Tag

	// Sync settings
	SyncInterval   time.Duration // LEDGER_SYNC_INTERVAL (default 15m; 0 = disabled)
	SyncS3Bucket   string        // LEDGER_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // LEDGER_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // LEDGER_SYNC_S3_REGION (default "sa-east-1")
	SyncS3Prefix   string        // LEDGER_SYNC_S3_PREFIX (default "ledger/exports")
	SyncGitRepo    string        // LEDGER_SYNC_GIT_REPO (enables git when set; path to clone)
	SyncGitDir     string        // LEDGER_SYNC_GIT_DIR (default "exports")
	SyncGitBranch  string        // LEDGER_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("LEDGER_DATABASE_URL"),
		HTTPAddr:       envOrDefault("LEDGER_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("LEDGER_NATS_URL"),
		AuthToken:      os.Getenv("LEDGER_AUTH_TOKEN"),
		SyncS3Bucket:   os.Getenv("LEDGER_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("LEDGER_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("LEDGER_SYNC_S3_REGION", "sa-east-1"),
		SyncS3Prefix:   strings.Trim(envOrDefault("LEDGER_SYNC_S3_PREFIX", "ledger/exports"), "/"),
		SyncGitRepo:    os.Getenv("LEDGER_SYNC_GIT_REPO"),
		SyncGitDir:     envOrDefault("LEDGER_SYNC_GIT_DIR", "exports"),
		SyncGitBranch:  envOrDefault("LEDGER_SYNC_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("LEDGER_DATABASE_URL is required")
	}

	level, err := ParseLevel(envOrDefault("LEDGER_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LEDGER_LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	tag, err := language.Parse(envOrDefault("LEDGER_EXPORT_LOCALE", "pt-BR"))
	if err != nil {
		return nil, fmt.Errorf("LEDGER_EXPORT_LOCALE: %w", err)
	}
	c.ExportLocale = tag

	intervalStr := envOrDefault("LEDGER_SYNC_INTERVAL", "15m")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("LEDGER_SYNC_INTERVAL: %w", err)
		}
		c.SyncInterval = d
	}

	return c, nil
}

// ParseLevel maps debug, info, warn or error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, err
	}
	return l, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
