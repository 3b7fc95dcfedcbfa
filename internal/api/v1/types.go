// internal/api/v1/types.go
package v1

import (
	"encoding/json"
	"time"
)

// entityResponse is the API representation of a monitored entity.
type entityResponse struct {
	ID            int64      `json:"id"`
	Kind          string     `json:"kind"`
	SourceID      string     `json:"source_id"`
	DisplayName   string     `json:"display_name"`
	AddedAt       time.Time  `json:"added_at"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

// listEntitiesResponse is the response for GET /entities.
type listEntitiesResponse struct {
	Items  []entityResponse `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// releaseResponse is the API representation of a discovered release.
type releaseResponse struct {
	ID             int64      `json:"id"`
	SourceAlbumID  string     `json:"source_album_id"`
	ArtistSourceID string     `json:"artist_source_id"`
	Title          string     `json:"title"`
	ReleaseDate    string     `json:"release_date,omitempty"` // YYYY-MM-DD
	RecordType     string     `json:"record_type"`
	TrackCount     int        `json:"track_count"`
	Explicit       bool       `json:"explicit"`
	DownloadStatus string     `json:"download_status"`
	DiscoveredAt   time.Time  `json:"discovered_at"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
}

// listReleasesResponse is the response for GET /releases.
type listReleasesResponse struct {
	Items  []releaseResponse `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// statusResponse is the response for GET /status.
type statusResponse struct {
	Status   string         `json:"status"`
	Entities int            `json:"entities"`
	Releases map[string]int `json:"releases"`
}

// reconcileRequest scopes a reconcile pass. An empty body reconciles
// everything monitored.
type reconcileRequest struct {
	EntityIDs []int64 `json:"entity_ids,omitempty"`
	Kind      string  `json:"kind,omitempty"`
}

// reconcileResponse summarizes one pass.
type reconcileResponse struct {
	Entities          int      `json:"entities"`
	NewReleases       int      `json:"new_releases"`
	NewPlaylistTracks int      `json:"new_playlist_tracks"`
	Errors            []string `json:"errors,omitempty"`
	DurationMS        int64    `json:"duration_ms"`
}

// downloadRequest names the work for POST /downloads.
type downloadRequest struct {
	Links     []string `json:"links,omitempty"`
	AlbumIDs  []string `json:"album_ids,omitempty"`
	Monitored bool     `json:"monitored,omitempty"`
	Force     bool     `json:"force,omitempty"`
	DryRun    bool     `json:"dry_run,omitempty"`
	Resume    bool     `json:"resume,omitempty"`
	Workers   int      `json:"workers,omitempty"`
}

// downloadResultResponse is the per-release outcome of a download run.
type downloadResultResponse struct {
	ReleaseID int64  `json:"release_id,omitempty"`
	SourceID  string `json:"source_id"`
	Title     string `json:"title"`
	Artist    string `json:"artist,omitempty"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
	Tracks    int    `json:"tracks"`
}

// downloadResponse is the response for POST /downloads.
type downloadResponse struct {
	Completed  int                      `json:"completed"`
	Skipped    int                      `json:"skipped"`
	Failed     int                      `json:"failed"`
	Planned    int                      `json:"planned"`
	DryRun     bool                     `json:"dry_run"`
	DurationMS int64                    `json:"duration_ms"`
	Results    []downloadResultResponse `json:"results"`
}

// EventResponse is the API representation of a logged event.
type EventResponse struct {
	ID         int64           `json:"id"`
	EventType  string          `json:"event_type"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt string          `json:"occurred_at"`
}

// listEventsResponse is the response for GET /events.
type listEventsResponse struct {
	Items  []EventResponse `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}
