package library

import (
	"encoding/json"
	"fmt"
)

// encodeArtists serializes the ordered credit list for storage.
func encodeArtists(artists []string) (string, error) {
	if artists == nil {
		artists = []string{}
	}
	b, err := json.Marshal(artists)
	if err != nil {
		return "", fmt.Errorf("encode artists: %w", err)
	}
	return string(b), nil
}

func decodeArtists(raw string) ([]string, error) {
	var artists []string
	if err := json.Unmarshal([]byte(raw), &artists); err != nil {
		return nil, fmt.Errorf("decode artists: %w", err)
	}
	return artists, nil
}

func addTrack(q querier, tr *Track) error {
	artists, err := encodeArtists(tr.Artists)
	if err != nil {
		return err
	}
	result, err := q.Exec(`
		INSERT INTO tracks (source_track_id, album_id, title, number, volume, artists, explicit, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.SourceTrackID, tr.AlbumID, tr.Title, tr.Number, tr.Volume, artists, tr.Explicit, tr.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("insert track: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	tr.ID = id
	return nil
}

// AddTrack inserts a track row. Returns ErrDuplicate if the source track is
// already recorded and ErrConstraint if AlbumID references no release.
func (s *Store) AddTrack(tr *Track) error { return addTrack(s.db, tr) }

// AddTrack inserts a track row within a transaction.
func (t *Tx) AddTrack(tr *Track) error { return addTrack(t.tx, tr) }

const trackColumns = "id, source_track_id, album_id, title, number, volume, artists, explicit, duration_seconds"

func scanTrack(row interface{ Scan(...any) error }) (*Track, error) {
	tr := &Track{}
	var artists string
	err := row.Scan(&tr.ID, &tr.SourceTrackID, &tr.AlbumID, &tr.Title, &tr.Number,
		&tr.Volume, &artists, &tr.Explicit, &tr.DurationSeconds)
	if err != nil {
		return nil, err
	}
	tr.Artists, err = decodeArtists(artists)
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func getTrackBySourceID(q querier, sourceTrackID string) (*Track, error) {
	tr, err := scanTrack(q.QueryRow("SELECT "+trackColumns+" FROM tracks WHERE source_track_id = ?", sourceTrackID))
	if err != nil {
		return nil, fmt.Errorf("get track %s: %w", sourceTrackID, mapSQLiteError(err))
	}
	return tr, nil
}

// GetTrackBySourceID retrieves a track by its catalog identifier.
// Returns ErrNotFound if the track does not exist.
func (s *Store) GetTrackBySourceID(sourceTrackID string) (*Track, error) {
	return getTrackBySourceID(s.db, sourceTrackID)
}

// GetTrackBySourceID retrieves a track by catalog identifier within a transaction.
func (t *Tx) GetTrackBySourceID(sourceTrackID string) (*Track, error) {
	return getTrackBySourceID(t.tx, sourceTrackID)
}

func tracksForRelease(q querier, albumID int64) ([]*Track, error) {
	rows, err := q.Query("SELECT "+trackColumns+" FROM tracks WHERE album_id = ? ORDER BY volume, number, id", albumID)
	if err != nil {
		return nil, fmt.Errorf("tracks for release %d: %w", albumID, err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Track
	for rows.Next() {
		tr, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		results = append(results, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return results, nil
}

// TracksForRelease returns a release's tracks in ascending (volume, number)
// order, the order the orchestrator writes them in.
func (s *Store) TracksForRelease(albumID int64) ([]*Track, error) {
	return tracksForRelease(s.db, albumID)
}

// TracksForRelease returns a release's tracks within a transaction.
func (t *Tx) TracksForRelease(albumID int64) ([]*Track, error) {
	return tracksForRelease(t.tx, albumID)
}
