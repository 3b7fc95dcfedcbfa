// Package library manages the monitored catalog: artists, playlists,
// discovered releases, and their tracks.
package library

import (
	"fmt"
	"strings"
	"time"
)

// EntityKind distinguishes monitored artists from monitored playlists.
type EntityKind string

const (
	KindArtist   EntityKind = "artist"
	KindPlaylist EntityKind = "playlist"
)

// ParseEntityKind converts a user-supplied string to an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(s) {
	case "artist":
		return KindArtist, nil
	case "playlist":
		return KindPlaylist, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
}

// RecordType classifies a release the way the catalog does.
type RecordType string

const (
	RecordAlbum       RecordType = "ALBUM"
	RecordEP          RecordType = "EP"
	RecordSingle      RecordType = "SINGLE"
	RecordCompilation RecordType = "COMPILATION"
)

// ParseRecordType converts a user-supplied string to a RecordType.
// Comparison is case-insensitive.
func ParseRecordType(s string) (RecordType, error) {
	switch strings.ToUpper(s) {
	case "ALBUM":
		return RecordAlbum, nil
	case "EP":
		return RecordEP, nil
	case "SINGLE":
		return RecordSingle, nil
	case "COMPILATION":
		return RecordCompilation, nil
	default:
		return "", fmt.Errorf("unknown record type %q", s)
	}
}

// MonitoredEntity is a user-tracked artist or playlist.
type MonitoredEntity struct {
	ID            int64
	Kind          EntityKind
	SourceID      string // catalog-service identifier
	DisplayName   string
	AddedAt       time.Time
	LastCheckedAt *time.Time // nil until first reconciliation
}

// Release is an album discovered by reconciliation. Rows are created only by
// the reconciliation engine and never deleted; the download status column is
// written only by the download orchestrator.
type Release struct {
	ID             int64
	SourceAlbumID  string
	ArtistSourceID string
	Title          string
	ReleaseDate    *time.Time
	RecordType     RecordType
	TrackCount     int
	Explicit       bool
	DiscoveredAt   time.Time
	DownloadStatus DownloadStatus
	LastAttemptAt  *time.Time
}

// Track is a single catalog track. AlbumID is nil for tracks reached through
// a playlist, which carry no album context.
type Track struct {
	ID              int64
	SourceTrackID   string
	AlbumID         *int64
	Title           string
	Number          int
	Volume          int
	Artists         []string // ordered credit list, first is the primary artist
	Explicit        bool
	DurationSeconds int
}

// Artist returns the primary credited artist, or "" for an empty credit list.
func (t *Track) Artist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}
