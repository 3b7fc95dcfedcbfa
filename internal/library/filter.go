package library

import "time"

// EntityFilter specifies criteria for listing monitored entities.
type EntityFilter struct {
	Kind       *EntityKind
	SourceID   *string
	AddedSince *time.Time
	AddedUntil *time.Time
	Limit      int // 0 = no limit
	Offset     int
}

// ReleaseFilter specifies criteria for listing releases.
type ReleaseFilter struct {
	DownloadStatus *DownloadStatus
	ArtistSourceID *string
	RecordType     *RecordType
	ReleasedSince  *time.Time
	ReleasedUntil  *time.Time
	Limit          int
	Offset         int
}
