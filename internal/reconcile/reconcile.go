// Package reconcile diffs remote catalog state against the local library
// and records newly published releases.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/resonarr/internal/events"
	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/pkg/catalog"
)

//go:generate mockgen -source=reconcile.go -destination=mocks/mock_catalog.go -package=mocks

// defaultConcurrency bounds parallel entity fetches when the config
// leaves it unset.
const defaultConcurrency = 4

// Catalog is the slice of the catalog client the engine consumes.
type Catalog interface {
	ArtistReleases(ctx context.Context, artistID string) ([]catalog.Album, error)
	AlbumTracks(ctx context.Context, albumID string) ([]catalog.Track, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]catalog.Track, error)
}

// Config carries the user-facing reconciliation settings.
type Config struct {
	RecordTypes []string // allowed record types; empty allows all
	Concurrency int      // parallel entity fetches, clamped to 1..10
}

// Scope restricts one reconciliation pass.
type Scope struct {
	EntityIDs     []int64             // explicit entities; empty means all monitored
	Kind          *library.EntityKind // restrict to artists or playlists
	AddedSince    *time.Time          // entity added-date window
	AddedUntil    *time.Time
	ReleasedSince *time.Time // album release-date window
	ReleasedUntil *time.Time
}

// Engine compares remote listings against the library and inserts what
// is missing. It never mutates existing release rows.
type Engine struct {
	store   *library.Store
	catalog Catalog
	bus     *events.Bus // optional
	log     *slog.Logger
	allowed map[library.RecordType]struct{} // nil allows all
	workers int
}

// NewEngine creates a reconciliation engine. Unknown record types in the
// config are rejected here, before any network work can start.
func NewEngine(store *library.Store, cat Catalog, bus *events.Bus, logger *slog.Logger, cfg Config) (*Engine, error) {
	var allowed map[library.RecordType]struct{}
	if len(cfg.RecordTypes) > 0 {
		allowed = make(map[library.RecordType]struct{}, len(cfg.RecordTypes))
		for _, s := range cfg.RecordTypes {
			rt, err := library.ParseRecordType(s)
			if err != nil {
				return nil, fmt.Errorf("record types: %w", err)
			}
			allowed[rt] = struct{}{}
		}
	}

	workers := cfg.Concurrency
	if workers <= 0 {
		workers = defaultConcurrency
	}
	if workers > 10 {
		workers = 10
	}

	return &Engine{
		store:   store,
		catalog: cat,
		bus:     bus,
		log:     logger.With("component", "reconcile"),
		allowed: allowed,
		workers: workers,
	}, nil
}

// Reconcile runs one pass over the scoped entities. Per-entity failures
// are recorded in the report and never abort the batch; only a failure
// to resolve the scope itself is returned as an error.
func (e *Engine) Reconcile(ctx context.Context, scope Scope) (*Report, error) {
	start := time.Now()

	entities, err := e.entitiesInScope(scope)
	if err != nil {
		return nil, err
	}

	results := make([]*EntityResult, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, ent := range entities {
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = &EntityResult{Entity: ent, Err: gctx.Err()}
				return nil
			}
			results[i] = e.reconcileEntity(gctx, ent, scope)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		StartedAt: start,
		Duration:  time.Since(start),
		Results:   results,
	}

	e.log.Info("reconciliation completed",
		"entities", len(results),
		"new_releases", report.NewReleaseCount(),
		"new_playlist_tracks", report.NewPlaylistTrackCount(),
		"errors", report.ErrorCount(),
		"duration_ms", report.Duration.Milliseconds())

	e.publish(ctx, &events.ReconcileCompleted{
		BaseEvent:         events.NewBaseEvent(events.EventReconcileCompleted, events.EntityReconcile, ""),
		Entities:          len(results),
		NewReleases:       report.NewReleaseCount(),
		NewPlaylistTracks: report.NewPlaylistTrackCount(),
		Errors:            report.ErrorCount(),
		DurationMS:        report.Duration.Milliseconds(),
	})

	return report, nil
}

// entitiesInScope resolves the scope to concrete monitored entities.
func (e *Engine) entitiesInScope(scope Scope) ([]*library.MonitoredEntity, error) {
	if len(scope.EntityIDs) > 0 {
		entities := make([]*library.MonitoredEntity, 0, len(scope.EntityIDs))
		for _, id := range scope.EntityIDs {
			ent, err := e.store.GetEntity(id)
			if err != nil {
				return nil, fmt.Errorf("entity %d: %w", id, err)
			}
			if scope.Kind != nil && ent.Kind != *scope.Kind {
				continue
			}
			entities = append(entities, ent)
		}
		return entities, nil
	}

	entities, _, err := e.store.ListEntities(library.EntityFilter{
		Kind:       scope.Kind,
		AddedSince: scope.AddedSince,
		AddedUntil: scope.AddedUntil,
	})
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return entities, nil
}

func (e *Engine) reconcileEntity(ctx context.Context, ent *library.MonitoredEntity, scope Scope) *EntityResult {
	switch ent.Kind {
	case library.KindPlaylist:
		return e.reconcilePlaylist(ctx, ent)
	default:
		return e.reconcileArtist(ctx, ent, scope)
	}
}

// reconcileArtist fetches an artist's discography and records unseen
// albums, with their tracks, at status pending.
func (e *Engine) reconcileArtist(ctx context.Context, ent *library.MonitoredEntity, scope Scope) *EntityResult {
	res := &EntityResult{Entity: ent}

	albums, err := e.catalog.ArtistReleases(ctx, ent.SourceID)
	if err != nil {
		res.Err = fmt.Errorf("fetch releases for %s: %w", ent.DisplayName, err)
		return res
	}

	known, err := e.store.KnownAlbumIDs(ent.SourceID)
	if err != nil {
		res.Err = fmt.Errorf("known albums for %s: %w", ent.DisplayName, err)
		return res
	}

	for _, album := range albums {
		if _, ok := known[album.ID]; ok {
			continue
		}

		recordType, err := library.ParseRecordType(album.RecordType)
		if err != nil {
			e.log.Debug("skipping release with unknown record type",
				"album_id", album.ID, "record_type", album.RecordType)
			continue
		}
		if e.allowed != nil {
			if _, ok := e.allowed[recordType]; !ok {
				continue
			}
		}
		if !inReleaseWindow(album.ReleaseDate, scope) {
			continue
		}

		tracks, err := e.catalog.AlbumTracks(ctx, album.ID)
		if err != nil {
			res.Err = errors.Join(res.Err, fmt.Errorf("fetch tracks for album %s: %w", album.ID, err))
			continue
		}

		release, err := e.insertRelease(ent, album, tracks)
		if err != nil {
			if errors.Is(err, library.ErrDuplicate) {
				// Another pass recorded it first.
				continue
			}
			res.Err = errors.Join(res.Err, fmt.Errorf("record album %s: %w", album.ID, err))
			continue
		}

		res.NewReleases = append(res.NewReleases, release)

		e.log.Info("discovered release",
			"artist", ent.DisplayName,
			"title", release.Title,
			"record_type", release.RecordType,
			"tracks", release.TrackCount)

		e.publish(ctx, &events.ReleaseDiscovered{
			BaseEvent:      events.NewBaseEvent(events.EventReleaseDiscovered, events.EntityRelease, release.SourceAlbumID),
			ReleaseID:      release.ID,
			ArtistSourceID: ent.SourceID,
			ArtistName:     ent.DisplayName,
			Title:          release.Title,
			RecordType:     string(release.RecordType),
			TrackCount:     release.TrackCount,
			ReleaseDate:    formatDate(release.ReleaseDate),
		})
	}

	e.touchChecked(ent)
	return res
}

// insertRelease records one album and its tracks in a single transaction.
// Tracks already known through a playlist stay as they are.
func (e *Engine) insertRelease(ent *library.MonitoredEntity, album catalog.Album, tracks []catalog.Track) (*library.Release, error) {
	release := &library.Release{
		SourceAlbumID:  album.ID,
		ArtistSourceID: ent.SourceID,
		Title:          album.Title,
		RecordType:     library.RecordType(album.RecordType),
		TrackCount:     album.TrackCount,
		Explicit:       album.Explicit,
	}
	if !album.ReleaseDate.IsZero() {
		d := album.ReleaseDate
		release.ReleaseDate = &d
	}
	if release.TrackCount == 0 {
		release.TrackCount = len(tracks)
	}

	err := e.store.WithTx(func(tx *library.Tx) error {
		if err := tx.AddRelease(release); err != nil {
			return err
		}
		for _, tr := range tracks {
			row := &library.Track{
				SourceTrackID:   tr.ID,
				AlbumID:         &release.ID,
				Title:           tr.Title,
				Number:          tr.Number,
				Volume:          tr.Volume,
				Artists:         tr.Artists,
				Explicit:        tr.Explicit,
				DurationSeconds: tr.Duration,
			}
			if err := tx.AddTrack(row); err != nil {
				if errors.Is(err, library.ErrDuplicate) {
					continue
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return release, nil
}

// reconcilePlaylist diffs a playlist's membership by track ID, records
// unseen tracks, and replaces the stored membership set. Playlists never
// produce release rows.
func (e *Engine) reconcilePlaylist(ctx context.Context, ent *library.MonitoredEntity) *EntityResult {
	res := &EntityResult{Entity: ent}

	remote, err := e.catalog.PlaylistTracks(ctx, ent.SourceID)
	if err != nil {
		res.Err = fmt.Errorf("fetch playlist %s: %w", ent.DisplayName, err)
		return res
	}

	known, err := e.store.KnownPlaylistTracks(ent.SourceID)
	if err != nil {
		res.Err = fmt.Errorf("known tracks for %s: %w", ent.DisplayName, err)
		return res
	}

	allIDs := make([]string, 0, len(remote))
	var fresh []*library.Track
	for _, tr := range remote {
		allIDs = append(allIDs, tr.ID)
		if _, ok := known[tr.ID]; ok {
			continue
		}
		fresh = append(fresh, &library.Track{
			SourceTrackID:   tr.ID,
			Title:           tr.Title,
			Number:          tr.Number,
			Volume:          tr.Volume,
			Artists:         tr.Artists,
			Explicit:        tr.Explicit,
			DurationSeconds: tr.Duration,
		})
	}

	err = e.store.WithTx(func(tx *library.Tx) error {
		for _, row := range fresh {
			if err := tx.AddTrack(row); err != nil && !errors.Is(err, library.ErrDuplicate) {
				return err
			}
		}
		return tx.ReplacePlaylistTracks(ent.SourceID, allIDs)
	})
	if err != nil {
		res.Err = fmt.Errorf("update playlist %s: %w", ent.DisplayName, err)
		return res
	}

	res.NewPlaylistTracks = fresh

	if len(fresh) > 0 {
		trackIDs := make([]string, len(fresh))
		for i, tr := range fresh {
			trackIDs[i] = tr.SourceTrackID
		}

		e.log.Info("discovered playlist tracks",
			"playlist", ent.DisplayName, "new_tracks", len(fresh))

		e.publish(ctx, &events.PlaylistTracksDiscovered{
			BaseEvent:     events.NewBaseEvent(events.EventPlaylistTracksDiscovered, events.EntityPlaylist, ent.SourceID),
			PlaylistTitle: ent.DisplayName,
			TrackIDs:      trackIDs,
		})
	}

	e.touchChecked(ent)
	return res
}

func (e *Engine) touchChecked(ent *library.MonitoredEntity) {
	if err := e.store.TouchEntityChecked(ent.ID, time.Now()); err != nil {
		e.log.Warn("failed to update last checked time",
			"entity_id", ent.ID, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, event events.Event) {
	if e.bus == nil {
		return
	}
	_ = e.bus.Publish(ctx, event)
}

// inReleaseWindow reports whether an album's release date falls inside
// the scope's window. Albums without a date only match an unbounded
// window.
func inReleaseWindow(date time.Time, scope Scope) bool {
	if scope.ReleasedSince == nil && scope.ReleasedUntil == nil {
		return true
	}
	if date.IsZero() {
		return false
	}
	if scope.ReleasedSince != nil && date.Before(*scope.ReleasedSince) {
		return false
	}
	if scope.ReleasedUntil != nil && date.After(*scope.ReleasedUntil) {
		return false
	}
	return true
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
