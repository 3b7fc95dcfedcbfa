package v1

import (
	"context"
	"errors"
	"time"

	"github.com/vmunix/resonarr/internal/download"
	"github.com/vmunix/resonarr/internal/events"
	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/internal/reconcile"
)

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

//go:generate mockgen -source=deps.go -destination=mocks/mock_deps.go -package=mocks

// Reconciler runs one reconciliation pass over a scope.
type Reconciler interface {
	Reconcile(ctx context.Context, scope reconcile.Scope) (*reconcile.Report, error)
}

// Downloader turns download targets into files on disk.
type Downloader interface {
	Run(ctx context.Context, targets []download.Target, opts download.Options) (*download.Report, error)
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; the optional ones may be nil when
// the daemon runs without catalog credentials or event persistence, in which
// case the affected routes answer 503.
type ServerDeps struct {
	// Required dependencies
	Library   *library.Store
	Downloads *download.Store

	// Optional dependencies (nil if not configured)
	Reconciler Reconciler
	Downloader Downloader
	EventLog   *events.EventLog

	// Lease is the claim lease used to flag stale downloads in /verify.
	// Zero falls back to 30 minutes.
	Lease time.Duration
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Library == nil {
		return errors.New("library store is required")
	}
	if d.Downloads == nil {
		return errors.New("downloads store is required")
	}
	return nil
}
