package reconcile

import (
	"time"

	"github.com/vmunix/resonarr/internal/library"
)

// EntityResult is the outcome of reconciling one monitored entity.
type EntityResult struct {
	Entity            *library.MonitoredEntity
	NewReleases       []*library.Release
	NewPlaylistTracks []*library.Track
	Err               error
}

// Report aggregates one reconciliation pass, partitioned per entity.
type Report struct {
	StartedAt time.Time
	Duration  time.Duration
	Results   []*EntityResult
}

// NewReleaseCount returns the number of releases discovered this pass.
func (r *Report) NewReleaseCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.NewReleases)
	}
	return n
}

// NewPlaylistTrackCount returns the number of playlist tracks discovered
// this pass.
func (r *Report) NewPlaylistTrackCount() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.NewPlaylistTracks)
	}
	return n
}

// ErrorCount returns the number of entities that recorded a failure.
func (r *Report) ErrorCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// HasErrors reports whether any entity failed.
func (r *Report) HasErrors() bool { return r.ErrorCount() > 0 }

// Errors returns the per-entity failures in reconciliation order.
func (r *Report) Errors() []error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errs
}

// AlbumTargets returns the catalog album IDs of every release discovered
// this pass, in reconciliation order. Callers use it to hand the new set
// to the download orchestrator after reconciliation has settled.
func (r *Report) AlbumTargets() []string {
	var ids []string
	for _, res := range r.Results {
		for _, release := range res.NewReleases {
			ids = append(ids, release.SourceAlbumID)
		}
	}
	return ids
}
