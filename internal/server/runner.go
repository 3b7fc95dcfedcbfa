// Package server composes the daemon: stale-claim recovery at startup,
// the periodic reconcile pass with optional auto-download, event
// handlers, and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	v1 "github.com/vmunix/resonarr/internal/api/v1"
	"github.com/vmunix/resonarr/internal/config"
	"github.com/vmunix/resonarr/internal/download"
	"github.com/vmunix/resonarr/internal/events"
	"github.com/vmunix/resonarr/internal/handlers"
	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/internal/naming"
	"github.com/vmunix/resonarr/internal/notify"
	"github.com/vmunix/resonarr/internal/quality"
	"github.com/vmunix/resonarr/internal/reconcile"
	"github.com/vmunix/resonarr/internal/tagging"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the HTTP drain after the context is canceled.
const shutdownTimeout = 30 * time.Second

// Runner composes the daemon from a database handle, an optional catalog
// client, and the loaded configuration.
type Runner struct {
	db     *sql.DB
	cat    download.Catalog
	cfg    *config.Config
	logger *slog.Logger
}

// NewRunner creates a daemon runner. cat may be nil, in which case the
// daemon serves the API in a degraded mode: browsing and requeueing
// work, reconcile and download routes answer 503.
func NewRunner(db *sql.DB, cat download.Catalog, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, cat: cat, cfg: cfg, logger: logger}
}

// Run starts all daemon components and blocks until the context is
// canceled or a component fails. Cancellation is a clean exit.
func (r *Runner) Run(ctx context.Context) error {
	eventLog := events.NewEventLog(r.db)
	bus := events.NewBus(nil, r.logger.With("component", "bus"))
	defer bus.Close()

	lib := library.NewStore(r.db)
	downloads := download.NewStore(r.db)

	// Recovery runs before the transition hook is attached: rows
	// orphaned by a previous crash get a log line, not events.
	recovered, err := downloads.RecoverExpired(r.cfg.Lease())
	if err != nil {
		return fmt.Errorf("recover expired claims: %w", err)
	}
	if recovered > 0 {
		r.logger.Info("recovered stale downloads", "count", recovered, "lease", r.cfg.Lease())
	}

	downloads.OnTransition(func(e download.TransitionEvent) {
		rel, err := lib.GetRelease(e.ReleaseID)
		if err != nil {
			r.logger.Warn("transition for unknown release", "release_id", e.ReleaseID, "error", err)
			return
		}
		_ = bus.Publish(ctx, &events.ReleaseStatusChanged{
			BaseEvent: events.NewBaseEvent(events.EventReleaseStatusChanged, events.EntityRelease, rel.SourceAlbumID),
			ReleaseID: e.ReleaseID,
			OldStatus: string(e.From),
			NewStatus: string(e.To),
		})
	})

	deps := v1.ServerDeps{
		Library:   lib,
		Downloads: downloads,
		EventLog:  eventLog,
		Lease:     r.cfg.Lease(),
	}

	var engine *reconcile.Engine
	var orch *download.Orchestrator
	if r.cat != nil {
		engine, orch, err = r.buildPipeline(lib, downloads, bus)
		if err != nil {
			return err
		}
		deps.Reconciler = engine
		deps.Downloader = orch
	} else {
		r.logger.Warn("catalog credentials not configured; reconcile and downloads disabled")
	}

	api, err := v1.New(deps, r.logger)
	if err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	addr := fmt.Sprintf("%s:%d", r.cfg.Server.Host, r.cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: v1.LogRequests(mux, r.logger)}

	r.logger.Info("server starting",
		"addr", addr,
		"database", r.cfg.Database.Path,
		"catalog", r.cat != nil,
		"auto_download", r.cfg.Monitor.AutoDownload,
		"log_level", r.cfg.Server.LogLevel,
	)

	g, gctx := errgroup.WithContext(ctx)

	evh := handlers.NewEventLogHandler(bus, eventLog, r.logger.With("component", "handler"))
	g.Go(func() error { return evh.Start(gctx) })

	if url := r.cfg.Notifications.WebhookURL; url != "" {
		nh := handlers.NewNotificationHandler(bus, notify.NewWebhook(url, nil, r.logger), r.logger.With("component", "handler"))
		g.Go(func() error { return nh.Start(gctx) })
	}

	if engine != nil {
		g.Go(func() error {
			r.monitor(gctx, engine, orch)
			return nil
		})
	}

	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		r.logger.Info("server stopped")
		return nil
	}
	return err
}

// buildPipeline constructs the reconcile engine and download
// orchestrator from the validated configuration.
func (r *Runner) buildPipeline(lib *library.Store, downloads *download.Store, bus *events.Bus) (*reconcile.Engine, *download.Orchestrator, error) {
	engine, err := reconcile.NewEngine(lib, r.cat, bus, r.logger, reconcile.Config{
		RecordTypes: r.cfg.Downloads.RecordTypes,
		Concurrency: r.cfg.Downloads.Workers,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reconcile engine: %w", err)
	}

	tiers, err := quality.ParseOrder(r.cfg.Downloads.QualityOrder)
	if err != nil {
		return nil, nil, fmt.Errorf("quality order: %w", err)
	}
	albumTpl, err := naming.Parse(r.cfg.Templates.Album)
	if err != nil {
		return nil, nil, fmt.Errorf("album template: %w", err)
	}
	playlistTpl, err := naming.Parse(r.cfg.Templates.Playlist)
	if err != nil {
		return nil, nil, fmt.Errorf("playlist template: %w", err)
	}

	orch, err := download.NewOrchestrator(r.cat, downloads, lib, tagging.NewID3(r.logger), bus, r.logger, download.Config{
		Root:             r.cfg.Downloads.Root,
		Workers:          r.cfg.Downloads.Workers,
		QualityOrder:     tiers,
		RecordTypes:      r.cfg.Downloads.RecordTypes,
		RetryAttempts:    r.cfg.Downloads.RetryAttempts,
		AlbumTemplate:    albumTpl,
		PlaylistTemplate: playlistTpl,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("download orchestrator: %w", err)
	}
	return engine, orch, nil
}

// monitor drives the periodic reconcile pass. The first pass waits one
// full interval; operators who want an immediate pass use the CLI or
// POST /api/v1/reconcile.
func (r *Runner) monitor(ctx context.Context, engine *reconcile.Engine, orch *download.Orchestrator) {
	interval := r.cfg.ReconcileInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := r.logger.With("component", "monitor")
	log.Info("monitor started", "interval", interval, "auto_download", r.cfg.Monitor.AutoDownload)

	for {
		select {
		case <-ctx.Done():
			log.Info("monitor stopped")
			return
		case <-ticker.C:
			r.runPass(ctx, engine, orch, log)
		}
	}
}

// runPass reconciles everything monitored and, when auto-download is
// enabled, hands the pass's discoveries straight to the orchestrator.
func (r *Runner) runPass(ctx context.Context, engine *reconcile.Engine, orch *download.Orchestrator, log *slog.Logger) {
	report, err := engine.Reconcile(ctx, reconcile.Scope{})
	if err != nil {
		log.Error("reconcile pass failed", "error", err)
		return
	}
	if !r.cfg.Monitor.AutoDownload || report.NewReleaseCount() == 0 {
		return
	}

	var targets []download.Target
	for _, id := range report.AlbumTargets() {
		targets = append(targets, download.AlbumTarget(id))
	}
	dlReport, err := orch.Run(ctx, targets, download.Options{})
	if err != nil {
		log.Error("auto-download failed", "error", err)
		return
	}
	log.Info("auto-download finished",
		"completed", dlReport.Completed(),
		"skipped", dlReport.Skipped(),
		"failed", dlReport.Failed(),
	)
}
