package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/resonarr/internal/events"
	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/internal/naming"
	"github.com/vmunix/resonarr/internal/quality"
	"github.com/vmunix/resonarr/internal/tagging"
	"github.com/vmunix/resonarr/pkg/catalog"
)

const (
	defaultWorkers = 4
	maxWorkers     = 10
)

// Catalog is the slice of the catalog client the orchestrator consumes.
type Catalog interface {
	Album(ctx context.Context, id string) (*catalog.Album, error)
	AlbumTracks(ctx context.Context, albumID string) ([]catalog.Track, error)
	Track(ctx context.Context, id string) (*catalog.Track, error)
	Playlist(ctx context.Context, id string) (*catalog.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]catalog.Track, error)
	ArtistReleases(ctx context.Context, artistID string) ([]catalog.Album, error)
	TrackStream(ctx context.Context, trackID, quality string) (io.ReadCloser, error)
}

// Config carries the user-facing download settings.
type Config struct {
	Root             string
	Workers          int // clamped to 1..10
	QualityOrder     []quality.Tier
	RecordTypes      []string // allowlist for artist discography expansion; empty allows all
	RetryAttempts    int
	AlbumTemplate    *naming.Template
	PlaylistTemplate *naming.Template
}

// Options adjusts one orchestrator run.
type Options struct {
	Force         bool
	DryRun        bool
	Resume        bool
	ReleasedSince *time.Time
	ReleasedUntil *time.Time
	Export        string // write resolved track links here
	AlsoDownload  bool   // with Export, also perform the downloads
	Workers       int    // override of Config.Workers, 0 keeps it
}

// Orchestrator turns targets into files on disk. Store-backed releases
// move through the claim protocol; everything else runs ad-hoc.
type Orchestrator struct {
	catalog Catalog
	store   *Store
	lib     *library.Store
	tagger  tagging.Tagger // optional
	bus     *events.Bus    // optional
	log     *slog.Logger
	cfg     Config
	retry   retryPolicy
	allowed map[library.RecordType]struct{} // nil allows all
}

// NewOrchestrator validates the config and creates an orchestrator.
// Templates left nil fall back to the package defaults.
func NewOrchestrator(cat Catalog, store *Store, lib *library.Store, tagger tagging.Tagger, bus *events.Bus, logger *slog.Logger, cfg Config) (*Orchestrator, error) {
	if cfg.Root == "" {
		return nil, errors.New("download root not configured")
	}
	if len(cfg.QualityOrder) == 0 {
		return nil, errors.New("empty quality order")
	}
	if cfg.AlbumTemplate == nil {
		t, err := naming.Parse(naming.DefaultAlbumTemplate)
		if err != nil {
			return nil, fmt.Errorf("default album template: %w", err)
		}
		cfg.AlbumTemplate = t
	}
	if cfg.PlaylistTemplate == nil {
		t, err := naming.Parse(naming.DefaultPlaylistTemplate)
		if err != nil {
			return nil, fmt.Errorf("default playlist template: %w", err)
		}
		cfg.PlaylistTemplate = t
	}

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

	cfg.Workers = clampWorkers(cfg.Workers)

	return &Orchestrator{
		catalog: cat,
		store:   store,
		lib:     lib,
		tagger:  tagger,
		bus:     bus,
		log:     logger.With("component", "download"),
		cfg:     cfg,
		retry:   newRetryPolicy(cfg.RetryAttempts),
		allowed: allowed,
	}, nil
}

func clampWorkers(n int) int {
	if n <= 0 {
		return defaultWorkers
	}
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}

// Run expands the targets, optionally exports their track links, and
// processes the resulting jobs over a bounded worker pool. Per-job
// failures land in the report; only export I/O errors are returned.
func (o *Orchestrator) Run(ctx context.Context, targets []Target, opts Options) (*Report, error) {
	start := time.Now()

	if opts.Force && opts.Resume {
		o.log.Warn("force overrides resume; completed releases will be fetched again")
		opts.Resume = false
	}

	jobs, failed := o.expand(ctx, targets, opts)

	report := &Report{StartedAt: start, DryRun: opts.DryRun}
	report.Results = append(report.Results, failed...)

	if opts.Export != "" {
		n, err := o.exportLinks(ctx, jobs, opts.Export)
		if err != nil {
			return nil, fmt.Errorf("export links: %w", err)
		}
		report.ExportPath = opts.Export
		report.ExportedLinks = n
		o.log.Info("exported track links", "path", opts.Export, "links", n)
		if !opts.AlsoDownload {
			report.Duration = time.Since(start)
			return report, nil
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = o.cfg.Workers
	}
	workers = clampWorkers(workers)

	results := make([]*ReleaseResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, j := range jobs {
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = failedResult(jobSourceID(j), "", gctx.Err())
				return nil
			}
			results[i] = o.processJob(gctx, j, opts)
			return nil
		})
	}
	_ = g.Wait()

	report.Results = append(report.Results, results...)
	report.Duration = time.Since(start)

	o.log.Info("download run finished",
		"releases", len(report.Results),
		"completed", report.Completed(),
		"skipped", report.Skipped(),
		"failed", report.Failed(),
		"tracks", report.TracksCompleted(),
		"dry_run", opts.DryRun,
		"duration_ms", report.Duration.Milliseconds())

	return report, nil
}

func jobSourceID(j job) string {
	switch {
	case j.release != nil:
		return j.release.SourceAlbumID
	case j.albumID != "":
		return j.albumID
	case j.trackID != "":
		return j.trackID
	default:
		return j.playlistID
	}
}

func (o *Orchestrator) processJob(ctx context.Context, j job, opts Options) *ReleaseResult {
	switch {
	case j.release != nil:
		return o.processRelease(ctx, j.release, opts)
	case j.albumID != "":
		res := &ReleaseResult{SourceID: j.albumID}
		o.processAlbum(ctx, j.albumID, res, opts)
		return res
	case j.trackID != "":
		return o.processSingle(ctx, j.trackID, opts)
	default:
		return o.processPlaylist(ctx, j.playlistID, opts)
	}
}

// processRelease runs the claim protocol around the shared album
// procedure and settles the row at completed or failed.
func (o *Orchestrator) processRelease(ctx context.Context, rel *library.Release, opts Options) *ReleaseResult {
	res := &ReleaseResult{ReleaseID: rel.ID, SourceID: rel.SourceAlbumID, Title: rel.Title}

	if opts.DryRun {
		// No claims and no status writes on a dry run; eligibility is
		// checked in memory instead.
		if reason := claimRefusal(rel.DownloadStatus, opts.Force); reason != "" {
			return res.skip(reason)
		}
		o.processAlbum(ctx, rel.SourceAlbumID, res, opts)
		return res
	}

	claim, err := o.store.Claim(rel.ID, opts.Force)
	if err != nil {
		switch {
		case errors.Is(err, ErrConcurrentlyProcessing):
			o.log.Info("release already being processed", "release_id", rel.ID, "title", rel.Title)
			return res.skip("another worker holds the claim")
		case errors.Is(err, ErrAlreadySatisfied):
			return res.skip("already completed")
		case errors.Is(err, ErrMarkedSkipped):
			return res.skip("marked skipped; requeue to download")
		default:
			return res.fail(err)
		}
	}

	if ent, err := o.lib.GetEntityBySource(library.KindArtist, rel.ArtistSourceID); err == nil && ent != nil {
		res.Artist = ent.DisplayName
	}

	o.publish(ctx, &events.DownloadStarted{
		BaseEvent:  events.NewBaseEvent(events.EventDownloadStarted, events.EntityRelease, rel.SourceAlbumID),
		ReleaseID:  rel.ID,
		Title:      rel.Title,
		ArtistName: res.Artist,
		TrackCount: rel.TrackCount,
	})

	o.processAlbum(ctx, rel.SourceAlbumID, res, opts)

	final := library.StatusCompleted
	if res.Status == ResultFailed {
		final = library.StatusFailed
	}
	if err := o.store.Finish(claim, final); err != nil {
		// Lease recovery took the row; the files written remain valid.
		o.log.Warn("could not settle release", "release_id", rel.ID, "error", err)
	}

	o.publishOutcome(ctx, rel, res)
	return res
}

// claimRefusal mirrors Store.Claim eligibility for dry runs. Empty means
// claimable.
func claimRefusal(status library.DownloadStatus, force bool) string {
	switch status {
	case library.StatusDownloading:
		return "another worker holds the claim"
	case library.StatusCompleted:
		if !force {
			return "already completed"
		}
	case library.StatusSkipped:
		return "marked skipped; requeue to download"
	}
	return ""
}

func (o *Orchestrator) publishOutcome(ctx context.Context, rel *library.Release, res *ReleaseResult) {
	if res.Status == ResultFailed {
		reason := res.Reason
		if reason == "" && res.Err != nil {
			reason = res.Err.Error()
		}
		o.publish(ctx, &events.DownloadFailed{
			BaseEvent:    events.NewBaseEvent(events.EventDownloadFailed, events.EntityRelease, rel.SourceAlbumID),
			ReleaseID:    rel.ID,
			Title:        res.Title,
			Reason:       reason,
			FailedTracks: countTracks(res.Tracks, ResultFailed),
			Retryable:    retryable(res.Err),
		})
		return
	}
	o.publish(ctx, &events.DownloadCompleted{
		BaseEvent: events.NewBaseEvent(events.EventDownloadCompleted, events.EntityRelease, rel.SourceAlbumID),
		ReleaseID: rel.ID,
		Title:     res.Title,
		Tracks:    countTracks(res.Tracks, ResultCompleted),
		Skipped:   countTracks(res.Tracks, ResultSkipped),
	})
}

func countTracks(tracks []TrackResult, s ResultStatus) int {
	n := 0
	for _, tr := range tracks {
		if tr.Status == s {
			n++
		}
	}
	return n
}

// processAlbum fetches the album and its track listing from the catalog
// and runs every track in ascending (volume, number) order. A track with
// no acceptable quality fails the whole release and stops its remaining
// tracks; other track failures are recorded and processing continues.
func (o *Orchestrator) processAlbum(ctx context.Context, albumID string, res *ReleaseResult, opts Options) {
	album, err := o.catalog.Album(ctx, albumID)
	if err != nil {
		res.fail(fmt.Errorf("fetch album %s: %w", albumID, err))
		return
	}
	res.Title = album.Title
	res.Artist = album.ArtistName

	tracks, err := o.catalog.AlbumTracks(ctx, albumID)
	if err != nil {
		res.fail(fmt.Errorf("fetch tracks for album %s: %w", albumID, err))
		return
	}
	sortTracks(tracks)

	nctx := naming.Context{Album: albumContext(album)}
	for _, tr := range tracks {
		if ctx.Err() != nil {
			res.fail(ctx.Err())
			return
		}
		tres := o.processTrack(ctx, tr, o.cfg.AlbumTemplate, nctx, opts)
		res.Tracks = append(res.Tracks, tres)
		if errors.Is(tres.Err, quality.ErrNoQualityAvailable) {
			res.fail(fmt.Errorf("%s: %w", tr.Title, quality.ErrNoQualityAvailable))
			return
		}
	}
	res.settle()
}

// processSingle downloads one track with its album context, ad-hoc.
func (o *Orchestrator) processSingle(ctx context.Context, trackID string, opts Options) *ReleaseResult {
	res := &ReleaseResult{SourceID: trackID}

	track, err := o.catalog.Track(ctx, trackID)
	if err != nil {
		return res.fail(fmt.Errorf("fetch track %s: %w", trackID, err))
	}
	res.Title = track.Title
	if len(track.Artists) > 0 {
		res.Artist = track.Artists[0]
	}

	nctx := naming.Context{}
	if track.AlbumID != "" {
		album, err := o.catalog.Album(ctx, track.AlbumID)
		if err != nil {
			return res.fail(fmt.Errorf("fetch album %s for track %s: %w", track.AlbumID, trackID, err))
		}
		nctx.Album = albumContext(album)
	}

	tres := o.processTrack(ctx, *track, o.cfg.AlbumTemplate, nctx, opts)
	res.Tracks = append(res.Tracks, tres)
	res.settle()
	return res
}

// processPlaylist downloads a playlist's tracks ad-hoc, rendering paths
// with the playlist template and 1-based positions.
func (o *Orchestrator) processPlaylist(ctx context.Context, playlistID string, opts Options) *ReleaseResult {
	res := &ReleaseResult{SourceID: playlistID}

	playlist, err := o.catalog.Playlist(ctx, playlistID)
	if err != nil {
		return res.fail(fmt.Errorf("fetch playlist %s: %w", playlistID, err))
	}
	res.Title = playlist.Title

	tracks, err := o.catalog.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return res.fail(fmt.Errorf("fetch playlist tracks %s: %w", playlistID, err))
	}

	for i, tr := range tracks {
		if ctx.Err() != nil {
			res.fail(ctx.Err())
			return res
		}
		nctx := naming.Context{
			Playlist: naming.Playlist{
				ID:      playlist.ID,
				Title:   playlist.Title,
				Index:   i + 1,
				Created: playlist.Created,
			},
			Album: naming.Album{ID: tr.AlbumID, Title: tr.AlbumTitle},
		}
		tres := o.processTrack(ctx, tr, o.cfg.PlaylistTemplate, nctx, opts)
		res.Tracks = append(res.Tracks, tres)
		if errors.Is(tres.Err, quality.ErrNoQualityAvailable) {
			res.fail(fmt.Errorf("%s: %w", tr.Title, quality.ErrNoQualityAvailable))
			return res
		}
	}
	res.settle()
	return res
}

// processTrack runs the per-track procedure: select a quality, render
// and validate the destination, skip satisfied files, then fetch, write
// atomically, and tag.
func (o *Orchestrator) processTrack(ctx context.Context, tr catalog.Track, tmpl *naming.Template, nctx naming.Context, opts Options) TrackResult {
	tres := TrackResult{TrackID: tr.ID, Title: tr.Title}

	tier, err := quality.Select(o.cfg.QualityOrder, availableTiers(tr.Qualities))
	if err != nil {
		tres.Status = ResultFailed
		tres.Err = err
		return tres
	}
	tres.Quality = tier

	nctx.Item = naming.Item{
		ID:       tr.ID,
		Title:    tr.Title,
		Artists:  tr.Artists,
		Number:   tr.Number,
		Volume:   tr.Volume,
		Explicit: tr.Explicit,
		Duration: tr.Duration,
	}
	base := filepath.Join(o.cfg.Root, filepath.FromSlash(tmpl.Render(nctx)))
	if err := naming.ValidatePath(base, o.cfg.Root); err != nil {
		tres.Status = ResultFailed
		tres.Err = fmt.Errorf("destination for %s: %w", tr.Title, err)
		return tres
	}
	final := base + quality.Ext(tier)
	tres.Path = final

	if existing := existingFile(base, quality.KnownExts()); existing != "" && !opts.Force {
		tres.Status = ResultSkipped
		tres.Reason = "file exists"
		tres.Path = existing
		o.log.Debug("track already on disk", "track_id", tr.ID, "path", existing)
		return tres
	}

	if opts.DryRun {
		tres.Status = ResultPlanned
		return tres
	}

	n, err := o.fetchTrack(ctx, tr.ID, string(tier), final)
	if err != nil {
		tres.Status = ResultFailed
		tres.Err = err
		return tres
	}
	tres.Bytes = n
	tres.Status = ResultCompleted
	o.log.Info("downloaded track", "title", tr.Title, "quality", tier, "bytes", n, "path", final)

	if o.tagger != nil && strings.EqualFold(filepath.Ext(final), ".mp3") {
		meta := tagging.Metadata{
			Title: tr.Title,
			Album: nctx.Album.Title,
			Track: tr.Number,
			Disc:  tr.Volume,
			Year:  yearOf(nctx.Album.Date),
		}
		if len(tr.Artists) > 0 {
			meta.Artist = tr.Artists[0]
		}
		if err := o.tagger.Tag(final, meta); err != nil {
			o.log.Warn("tagging failed", "path", final, "error", err)
		}
	}

	return tres
}

// fetchTrack streams the media through the shared limiter and writes it
// atomically, retrying transient failures with exponential backoff.
func (o *Orchestrator) fetchTrack(ctx context.Context, trackID, tier, path string) (int64, error) {
	var lastErr error
	for tries := 0; tries < o.retry.attempts; tries++ {
		stream, err := o.catalog.TrackStream(ctx, trackID, tier)
		if err == nil {
			var n int64
			n, err = writeAtomic(path, stream)
			_ = stream.Close()
			if err == nil {
				return n, nil
			}
		}
		lastErr = err

		if !retryable(err) {
			return 0, err
		}
		if tries == o.retry.attempts-1 {
			break
		}
		o.log.Debug("retrying track fetch", "track_id", trackID, "attempt", tries+1, "error", err)
		if err := o.retry.wait(ctx, tries); err != nil {
			return 0, fmt.Errorf("fetch track %s: %w", trackID, err)
		}
	}
	return 0, fmt.Errorf("fetch track %s after %d attempts: %w", trackID, o.retry.attempts, lastErr)
}

// exportLinks resolves every job to track share links and writes them
// one per line.
func (o *Orchestrator) exportLinks(ctx context.Context, jobs []job, path string) (int, error) {
	var links []string
	for _, j := range jobs {
		ids, err := o.jobTrackIDs(ctx, j)
		if err != nil {
			return 0, err
		}
		for _, id := range ids {
			links = append(links, catalog.FormatLink(catalog.LinkTrack, id))
		}
	}

	var b strings.Builder
	for _, link := range links {
		b.WriteString(link)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return 0, err
	}
	return len(links), nil
}

func (o *Orchestrator) jobTrackIDs(ctx context.Context, j job) ([]string, error) {
	albumID := j.albumID
	if j.release != nil {
		albumID = j.release.SourceAlbumID
	}

	var tracks []catalog.Track
	var err error
	switch {
	case albumID != "":
		tracks, err = o.catalog.AlbumTracks(ctx, albumID)
	case j.playlistID != "":
		tracks, err = o.catalog.PlaylistTracks(ctx, j.playlistID)
	default:
		return []string{j.trackID}, nil
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(tracks))
	for i, tr := range tracks {
		ids[i] = tr.ID
	}
	return ids, nil
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if o.bus == nil {
		return
	}
	_ = o.bus.Publish(ctx, event)
}

func sortTracks(tracks []catalog.Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		if tracks[i].Volume != tracks[j].Volume {
			return tracks[i].Volume < tracks[j].Volume
		}
		return tracks[i].Number < tracks[j].Number
	})
}

// availableTiers maps the wire quality names onto known tiers, dropping
// anything unrecognized.
func availableTiers(qualities []string) []quality.Tier {
	tiers := make([]quality.Tier, 0, len(qualities))
	for _, q := range qualities {
		t, err := quality.Parse(q)
		if err != nil {
			continue
		}
		tiers = append(tiers, t)
	}
	return tiers
}

func albumContext(album *catalog.Album) naming.Album {
	artists := album.Artists
	if len(artists) == 0 && album.ArtistName != "" {
		artists = []string{album.ArtistName}
	}
	return naming.Album{
		ID:         album.ID,
		Title:      album.Title,
		Artists:    artists,
		Date:       album.ReleaseDate,
		RecordType: album.RecordType,
		Explicit:   album.Explicit,
	}
}

// inDateWindow mirrors the reconcile release window for bulk expansion.
func inDateWindow(date time.Time, opts Options) bool {
	if opts.ReleasedSince == nil && opts.ReleasedUntil == nil {
		return true
	}
	if date.IsZero() {
		return false
	}
	if opts.ReleasedSince != nil && date.Before(*opts.ReleasedSince) {
		return false
	}
	if opts.ReleasedUntil != nil && date.After(*opts.ReleasedUntil) {
		return false
	}
	return true
}

func yearOf(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.Itoa(t.Year())
}
