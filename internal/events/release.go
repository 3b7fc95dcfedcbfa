package events

// Entity types
const (
	EntityRelease   = "release"
	EntityArtist    = "artist"
	EntityPlaylist  = "playlist"
	EntityReconcile = "reconcile"
)

// Event type constants
const (
	EventReleaseDiscovered        = "release.discovered"
	EventPlaylistTracksDiscovered = "playlist.tracks.discovered"
	EventReconcileCompleted       = "reconcile.completed"
	EventReleaseStatusChanged     = "release.status.changed"
	EventDownloadStarted          = "download.started"
	EventDownloadCompleted        = "download.completed"
	EventDownloadFailed           = "download.failed"
)

// ReleaseDiscovered is emitted when reconciliation records a release it
// has not seen before. The entity ID is the catalog album ID.
type ReleaseDiscovered struct {
	BaseEvent
	ReleaseID      int64  `json:"release_id"`
	ArtistSourceID string `json:"artist_source_id"`
	ArtistName     string `json:"artist_name"`
	Title          string `json:"title"`
	RecordType     string `json:"record_type"`
	TrackCount     int    `json:"track_count"`
	ReleaseDate    string `json:"release_date,omitempty"` // YYYY-MM-DD
}

// PlaylistTracksDiscovered is emitted when reconciliation sees tracks
// added to a monitored playlist since the last check.
type PlaylistTracksDiscovered struct {
	BaseEvent
	PlaylistTitle string   `json:"playlist_title"`
	TrackIDs      []string `json:"track_ids"`
}

// ReconcileCompleted summarizes one reconciliation pass over a scope.
type ReconcileCompleted struct {
	BaseEvent
	Entities          int   `json:"entities"`
	NewReleases       int   `json:"new_releases"`
	NewPlaylistTracks int   `json:"new_playlist_tracks"`
	Errors            int   `json:"errors"`
	DurationMS        int64 `json:"duration_ms"`
}

// ReleaseStatusChanged is emitted on every download status transition.
type ReleaseStatusChanged struct {
	BaseEvent
	ReleaseID int64  `json:"release_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// DownloadStarted is emitted when the orchestrator claims a release.
type DownloadStarted struct {
	BaseEvent
	ReleaseID  int64  `json:"release_id"`
	Title      string `json:"title"`
	ArtistName string `json:"artist_name"`
	TrackCount int    `json:"track_count"`
}

// DownloadCompleted is emitted when every track of a claimed release
// has been fetched or was already present.
type DownloadCompleted struct {
	BaseEvent
	ReleaseID int64  `json:"release_id"`
	Title     string `json:"title"`
	Tracks    int    `json:"tracks"`
	Skipped   int    `json:"skipped"`
}

// DownloadFailed is emitted when a claimed release finishes with one or
// more failed tracks, or when no configured quality is available.
type DownloadFailed struct {
	BaseEvent
	ReleaseID    int64  `json:"release_id"`
	Title        string `json:"title"`
	Reason       string `json:"reason"`
	FailedTracks int    `json:"failed_tracks"`
	Retryable    bool   `json:"retryable"`
}
