package library

import (
	"fmt"
	"strings"
	"time"
)

func addRelease(q querier, r *Release) error {
	now := time.Now()
	if r.DownloadStatus == "" {
		r.DownloadStatus = StatusPending
	}
	result, err := q.Exec(`
		INSERT INTO releases (source_album_id, artist_source_id, title, release_date, record_type, track_count, explicit, discovered_at, download_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SourceAlbumID, r.ArtistSourceID, r.Title, r.ReleaseDate, r.RecordType, r.TrackCount, r.Explicit, now, r.DownloadStatus,
	)
	if err != nil {
		return fmt.Errorf("insert release: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	r.ID = id
	r.DiscoveredAt = now
	return nil
}

// AddRelease inserts a newly discovered release at status pending.
// Sets ID and DiscoveredAt on the struct. Returns ErrDuplicate if the
// source album is already recorded.
func (s *Store) AddRelease(r *Release) error { return addRelease(s.db, r) }

// AddRelease inserts a newly discovered release within a transaction.
func (t *Tx) AddRelease(r *Release) error { return addRelease(t.tx, r) }

const releaseColumns = "id, source_album_id, artist_source_id, title, release_date, record_type, track_count, explicit, discovered_at, download_status, last_attempt_at"

func scanRelease(row interface{ Scan(...any) error }) (*Release, error) {
	r := &Release{}
	err := row.Scan(&r.ID, &r.SourceAlbumID, &r.ArtistSourceID, &r.Title, &r.ReleaseDate,
		&r.RecordType, &r.TrackCount, &r.Explicit, &r.DiscoveredAt, &r.DownloadStatus, &r.LastAttemptAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func getRelease(q querier, id int64) (*Release, error) {
	r, err := scanRelease(q.QueryRow("SELECT "+releaseColumns+" FROM releases WHERE id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("get release %d: %w", id, mapSQLiteError(err))
	}
	return r, nil
}

// GetRelease retrieves a release by row ID.
// Returns ErrNotFound if the release does not exist.
func (s *Store) GetRelease(id int64) (*Release, error) { return getRelease(s.db, id) }

// GetRelease retrieves a release by row ID within a transaction.
func (t *Tx) GetRelease(id int64) (*Release, error) { return getRelease(t.tx, id) }

func getReleaseBySourceID(q querier, sourceAlbumID string) (*Release, error) {
	r, err := scanRelease(q.QueryRow("SELECT "+releaseColumns+" FROM releases WHERE source_album_id = ?", sourceAlbumID))
	if err != nil {
		return nil, fmt.Errorf("get release %s: %w", sourceAlbumID, mapSQLiteError(err))
	}
	return r, nil
}

// GetReleaseBySourceID retrieves a release by its catalog album identifier.
// Returns ErrNotFound if the release does not exist.
func (s *Store) GetReleaseBySourceID(sourceAlbumID string) (*Release, error) {
	return getReleaseBySourceID(s.db, sourceAlbumID)
}

// GetReleaseBySourceID retrieves a release by catalog identifier within a transaction.
func (t *Tx) GetReleaseBySourceID(sourceAlbumID string) (*Release, error) {
	return getReleaseBySourceID(t.tx, sourceAlbumID)
}

func listReleases(q querier, f ReleaseFilter) ([]*Release, int, error) {
	var conditions []string
	var args []any

	if f.DownloadStatus != nil {
		conditions = append(conditions, "download_status = ?")
		args = append(args, *f.DownloadStatus)
	}
	if f.ArtistSourceID != nil {
		conditions = append(conditions, "artist_source_id = ?")
		args = append(args, *f.ArtistSourceID)
	}
	if f.RecordType != nil {
		conditions = append(conditions, "record_type = ?")
		args = append(args, *f.RecordType)
	}
	if f.ReleasedSince != nil {
		conditions = append(conditions, "release_date >= ?")
		args = append(args, *f.ReleasedSince)
	}
	if f.ReleasedUntil != nil {
		conditions = append(conditions, "release_date <= ?")
		args = append(args, *f.ReleasedUntil)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := q.QueryRow("SELECT COUNT(*) FROM releases "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count releases: %w", err)
	}

	query := "SELECT " + releaseColumns + " FROM releases " + whereClause + " ORDER BY id"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list releases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Release
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan release: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate releases: %w", err)
	}

	return results, total, nil
}

// ListReleases returns releases matching the filter with pagination.
// Returns (results, totalCount, error).
func (s *Store) ListReleases(f ReleaseFilter) ([]*Release, int, error) { return listReleases(s.db, f) }

// ListReleases returns releases matching the filter within a transaction.
func (t *Tx) ListReleases(f ReleaseFilter) ([]*Release, int, error) { return listReleases(t.tx, f) }

func knownAlbumIDs(q querier, artistSourceID string) (map[string]struct{}, error) {
	rows, err := q.Query("SELECT source_album_id FROM releases WHERE artist_source_id = ?", artistSourceID)
	if err != nil {
		return nil, fmt.Errorf("known albums for %s: %w", artistSourceID, err)
	}
	defer func() { _ = rows.Close() }()

	known := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan album id: %w", err)
		}
		known[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate album ids: %w", err)
	}
	return known, nil
}

// KnownAlbumIDs returns the set of catalog album identifiers already recorded
// for an artist. Used by reconciliation to diff remote state.
func (s *Store) KnownAlbumIDs(artistSourceID string) (map[string]struct{}, error) {
	return knownAlbumIDs(s.db, artistSourceID)
}

// KnownAlbumIDs returns recorded album identifiers within a transaction.
func (t *Tx) KnownAlbumIDs(artistSourceID string) (map[string]struct{}, error) {
	return knownAlbumIDs(t.tx, artistSourceID)
}
