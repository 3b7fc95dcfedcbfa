package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	_ "modernc.org/sqlite"
	"golang.org/x/time/rate"

	"github.com/vmunix/resonarr/internal/config"
	"github.com/vmunix/resonarr/internal/download"
	"github.com/vmunix/resonarr/internal/migrations"
	"github.com/vmunix/resonarr/internal/server"
	"github.com/vmunix/resonarr/pkg/catalog"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer(configPath string) error {
	if configPath == "" {
		p, err := config.Discover()
		if err != nil {
			return err
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Database.Path+"?_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// The catalog client is optional: without credentials the daemon
	// still serves the API for browsing and requeueing.
	var cat download.Catalog
	if cfg.Catalog.ClientID != "" && cfg.Catalog.RefreshToken != "" {
		opts := []catalog.Option{
			catalog.WithCountry(cfg.Catalog.Country),
			catalog.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Catalog.RequestsPerSecond), cfg.Catalog.Burst)),
			catalog.WithMaxWait(cfg.CatalogMaxWait()),
			catalog.WithLogger(logger.With("component", "catalog")),
		}
		if cfg.Catalog.BaseURL != "" {
			opts = append(opts, catalog.WithBaseURL(cfg.Catalog.BaseURL))
		}
		cat = catalog.New(cfg.Catalog.ClientID, cfg.Catalog.RefreshToken, opts...)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.NewRunner(db, cat, cfg, logger).Run(ctx)
}
