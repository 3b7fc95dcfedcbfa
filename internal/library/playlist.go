package library

import (
	"fmt"
	"time"
)

func knownPlaylistTracks(q querier, playlistSourceID string) (map[string]struct{}, error) {
	rows, err := q.Query("SELECT source_track_id FROM playlist_tracks WHERE playlist_source_id = ?", playlistSourceID)
	if err != nil {
		return nil, fmt.Errorf("known playlist tracks for %s: %w", playlistSourceID, err)
	}
	defer func() { _ = rows.Close() }()

	known := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan playlist track id: %w", err)
		}
		known[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlist track ids: %w", err)
	}
	return known, nil
}

// KnownPlaylistTracks returns the last-known membership set of a playlist,
// keyed by catalog track identifier.
func (s *Store) KnownPlaylistTracks(playlistSourceID string) (map[string]struct{}, error) {
	return knownPlaylistTracks(s.db, playlistSourceID)
}

// KnownPlaylistTracks returns the membership set within a transaction.
func (t *Tx) KnownPlaylistTracks(playlistSourceID string) (map[string]struct{}, error) {
	return knownPlaylistTracks(t.tx, playlistSourceID)
}

func replacePlaylistTracks(q querier, playlistSourceID string, trackIDs []string) error {
	if _, err := q.Exec("DELETE FROM playlist_tracks WHERE playlist_source_id = ?", playlistSourceID); err != nil {
		return fmt.Errorf("clear playlist %s: %w", playlistSourceID, err)
	}
	now := time.Now()
	for _, id := range trackIDs {
		if _, err := q.Exec(`
			INSERT INTO playlist_tracks (playlist_source_id, source_track_id, added_at)
			VALUES (?, ?, ?)`,
			playlistSourceID, id, now,
		); err != nil {
			return fmt.Errorf("insert playlist track %s: %w", id, mapSQLiteError(err))
		}
	}
	return nil
}

// ReplacePlaylistTracks swaps a playlist's stored membership for the given
// set. Callers wanting atomicity run it inside WithTx.
func (s *Store) ReplacePlaylistTracks(playlistSourceID string, trackIDs []string) error {
	return replacePlaylistTracks(s.db, playlistSourceID, trackIDs)
}

// ReplacePlaylistTracks swaps stored membership within a transaction.
func (t *Tx) ReplacePlaylistTracks(playlistSourceID string, trackIDs []string) error {
	return replacePlaylistTracks(t.tx, playlistSourceID, trackIDs)
}
