package download

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/pkg/catalog"
)

// TargetKind selects how a download target expands into work.
type TargetKind string

const (
	TargetAlbum     TargetKind = "album"
	TargetArtist    TargetKind = "artist"
	TargetTrack     TargetKind = "track"
	TargetPlaylist  TargetKind = "playlist"
	TargetMonitored TargetKind = "monitored"
)

// Target names one requested unit of work. ID is the catalog identifier,
// empty for TargetMonitored.
type Target struct {
	Kind TargetKind
	ID   string
}

func AlbumTarget(id string) Target    { return Target{Kind: TargetAlbum, ID: id} }
func ArtistTarget(id string) Target   { return Target{Kind: TargetArtist, ID: id} }
func TrackTarget(id string) Target    { return Target{Kind: TargetTrack, ID: id} }
func PlaylistTarget(id string) Target { return Target{Kind: TargetPlaylist, ID: id} }
func MonitoredTarget() Target         { return Target{Kind: TargetMonitored} }

// URLTarget parses a catalog share link into the matching target.
func URLTarget(raw string) (Target, error) {
	link, err := catalog.ParseLink(raw)
	if err != nil {
		return Target{}, err
	}
	switch link.Kind {
	case catalog.LinkArtist:
		return ArtistTarget(link.ID), nil
	case catalog.LinkAlbum:
		return AlbumTarget(link.ID), nil
	case catalog.LinkTrack:
		return TrackTarget(link.ID), nil
	case catalog.LinkPlaylist:
		return PlaylistTarget(link.ID), nil
	}
	return Target{}, fmt.Errorf("%w: %s", catalog.ErrBadLink, raw)
}

// job is one release-sized unit for the worker pool. Store-backed jobs
// carry a release row and go through the claim protocol; the other
// fields describe ad-hoc work that never touches persisted status.
// Track listings are fetched from the catalog inside the worker, never
// at expansion time.
type job struct {
	release    *library.Release
	albumID    string
	trackID    string
	playlistID string
}

// expand resolves targets to jobs. Resolution failures become failed
// report entries rather than aborting the batch.
func (o *Orchestrator) expand(ctx context.Context, targets []Target, opts Options) ([]job, []*ReleaseResult) {
	var jobs []job
	var failed []*ReleaseResult

	seen := make(map[string]struct{})
	add := func(j job) {
		key := j.albumID + "|" + j.trackID + "|" + j.playlistID
		if j.release != nil {
			key = "release|" + j.release.SourceAlbumID
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		jobs = append(jobs, j)
	}

	for _, t := range targets {
		switch t.Kind {
		case TargetAlbum:
			j, skip, err := o.albumJob(t.ID, opts)
			if err != nil {
				failed = append(failed, failedResult(t.ID, "", err))
				continue
			}
			if !skip {
				add(j)
			}
		case TargetArtist:
			expanded, err := o.expandArtist(ctx, t.ID, opts)
			if err != nil {
				failed = append(failed, failedResult(t.ID, "", err))
				continue
			}
			for _, j := range expanded {
				add(j)
			}
		case TargetTrack:
			add(job{trackID: t.ID})
		case TargetPlaylist:
			add(job{playlistID: t.ID})
		case TargetMonitored:
			expanded, err := o.expandMonitored(opts)
			if err != nil {
				failed = append(failed, failedResult("", "monitored releases", err))
				continue
			}
			for _, j := range expanded {
				add(j)
			}
		default:
			failed = append(failed, failedResult(t.ID, "", fmt.Errorf("unknown target kind %q", t.Kind)))
		}
	}

	return jobs, failed
}

// albumJob maps one album ID to a store-backed or ad-hoc job. Resume
// drops completed rows silently (skip true).
func (o *Orchestrator) albumJob(albumID string, opts Options) (job, bool, error) {
	rel, err := o.lib.GetReleaseBySourceID(albumID)
	if err != nil && !errors.Is(err, library.ErrNotFound) {
		return job{}, false, fmt.Errorf("look up album %s: %w", albumID, err)
	}
	if rel == nil {
		return job{albumID: albumID}, false, nil
	}
	if opts.Resume && rel.DownloadStatus == library.StatusCompleted {
		return job{}, true, nil
	}
	return job{release: rel}, false, nil
}

// expandArtist turns a discography into album jobs, honoring the record
// type allowlist and the release date window.
func (o *Orchestrator) expandArtist(ctx context.Context, artistID string, opts Options) ([]job, error) {
	albums, err := o.catalog.ArtistReleases(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("fetch releases for artist %s: %w", artistID, err)
	}

	var jobs []job
	for _, album := range albums {
		if o.allowed != nil {
			rt, err := library.ParseRecordType(album.RecordType)
			if err != nil {
				continue
			}
			if _, ok := o.allowed[rt]; !ok {
				continue
			}
		}
		if !inDateWindow(album.ReleaseDate, opts) {
			continue
		}
		j, skip, err := o.albumJob(album.ID, opts)
		if err != nil {
			return nil, err
		}
		if !skip {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

// expandMonitored selects store rows for a bulk run. Skipped rows are
// never selected; completed rows are selected unless Resume filters
// them, surfacing as informational skips when the claim refuses them.
func (o *Orchestrator) expandMonitored(opts Options) ([]job, error) {
	statuses := []library.DownloadStatus{library.StatusPending, library.StatusFailed}
	if !opts.Resume {
		statuses = append(statuses, library.StatusCompleted)
	}

	var jobs []job
	for _, status := range statuses {
		releases, _, err := o.lib.ListReleases(library.ReleaseFilter{
			DownloadStatus: &status,
			ReleasedSince:  opts.ReleasedSince,
			ReleasedUntil:  opts.ReleasedUntil,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s releases: %w", status, err)
		}
		for _, rel := range releases {
			jobs = append(jobs, job{release: rel})
		}
	}
	return jobs, nil
}
