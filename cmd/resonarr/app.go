package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"
	_ "modernc.org/sqlite"

	"github.com/vmunix/resonarr/internal/config"
	"github.com/vmunix/resonarr/internal/download"
	"github.com/vmunix/resonarr/internal/events"
	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/internal/migrations"
	"github.com/vmunix/resonarr/internal/naming"
	"github.com/vmunix/resonarr/internal/quality"
	"github.com/vmunix/resonarr/internal/reconcile"
	"github.com/vmunix/resonarr/internal/tagging"
	"github.com/vmunix/resonarr/pkg/catalog"
)

// app bundles the plumbing a one-shot command needs: configuration,
// database, stores, and the event bus. The event log is attached to
// the bus directly so every event is persisted before Publish returns;
// the daemon does the same job with an async handler, but a CLI
// process cannot exit with events still in flight.
type app struct {
	cfg       *config.Config
	db        *sql.DB
	lib       *library.Store
	downloads *download.Store
	eventLog  *events.EventLog
	bus       *events.Bus
	log       *slog.Logger
}

// resolveConfigPath honors --config, then the standard search order.
func resolveConfigPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return config.Discover()
}

func loadConfig() (*config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// cliLogger reports warnings and errors on stderr, keeping stdout for
// command output. --verbose opens it up to debug.
func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openApp loads the configuration and opens the library database,
// applying the schema if the file is new.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cliLogger()

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", cfg.Database.Path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	eventLog := events.NewEventLog(db)
	return &app{
		cfg:       cfg,
		db:        db,
		lib:       library.NewStore(db),
		downloads: download.NewStore(db),
		eventLog:  eventLog,
		bus:       events.NewBus(eventLog, logger),
		log:       logger,
	}, nil
}

func (a *app) Close() {
	_ = a.bus.Close()
	_ = a.db.Close()
}

// newCatalogClient builds the authenticated catalog client, or explains
// which credentials are missing.
func newCatalogClient(cfg *config.Config, logger *slog.Logger) (*catalog.Client, error) {
	cc := cfg.Catalog
	if cc.ClientID == "" || cc.RefreshToken == "" {
		return nil, errors.New("catalog credentials not configured: set catalog.client_id and catalog.refresh_token")
	}
	opts := []catalog.Option{
		catalog.WithCountry(cc.Country),
		catalog.WithLimiter(rate.NewLimiter(rate.Limit(cc.RequestsPerSecond), cc.Burst)),
		catalog.WithMaxWait(cfg.CatalogMaxWait()),
		catalog.WithLogger(logger.With("component", "catalog")),
	}
	if cc.BaseURL != "" {
		opts = append(opts, catalog.WithBaseURL(cc.BaseURL))
	}
	return catalog.New(cc.ClientID, cc.RefreshToken, opts...), nil
}

func (a *app) catalogClient() (*catalog.Client, error) {
	return newCatalogClient(a.cfg, a.log)
}

func (a *app) newEngine(cat reconcile.Catalog) (*reconcile.Engine, error) {
	return reconcile.NewEngine(a.lib, cat, a.bus, a.log, reconcile.Config{
		RecordTypes: a.cfg.Downloads.RecordTypes,
		Concurrency: a.cfg.Downloads.Workers,
	})
}

func (a *app) newOrchestrator(cat download.Catalog) (*download.Orchestrator, error) {
	tiers, err := quality.ParseOrder(a.cfg.Downloads.QualityOrder)
	if err != nil {
		return nil, fmt.Errorf("quality order: %w", err)
	}
	albumTpl, err := naming.Parse(a.cfg.Templates.Album)
	if err != nil {
		return nil, fmt.Errorf("album template: %w", err)
	}
	playlistTpl, err := naming.Parse(a.cfg.Templates.Playlist)
	if err != nil {
		return nil, fmt.Errorf("playlist template: %w", err)
	}
	return download.NewOrchestrator(cat, a.downloads, a.lib, tagging.NewID3(a.log), a.bus, a.log, download.Config{
		Root:             a.cfg.Downloads.Root,
		Workers:          a.cfg.Downloads.Workers,
		QualityOrder:     tiers,
		RecordTypes:      a.cfg.Downloads.RecordTypes,
		RetryAttempts:    a.cfg.Downloads.RetryAttempts,
		AlbumTemplate:    albumTpl,
		PlaylistTemplate: playlistTpl,
	})
}
