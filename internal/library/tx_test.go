// internal/library/tx_test.go
package library

import (
	"errors"
	"testing"
)

func TestTx_Commit(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	tx, err := store.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	e := &MonitoredEntity{Kind: KindArtist, SourceID: "tx-1", DisplayName: "TX Artist"}
	if err := tx.AddEntity(e); err != nil {
		t.Fatalf("AddEntity in tx failed: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// Should be visible outside transaction
	got, err := store.GetEntity(e.ID)
	if err != nil {
		t.Fatalf("GetEntity after commit failed: %v", err)
	}
	if got.DisplayName != "TX Artist" {
		t.Errorf("expected display name 'TX Artist', got %q", got.DisplayName)
	}
}

func TestTx_Rollback(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	tx, err := store.Begin()
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	e := &MonitoredEntity{Kind: KindArtist, SourceID: "tx-1", DisplayName: "TX Artist"}
	if err := tx.AddEntity(e); err != nil {
		t.Fatalf("AddEntity in tx failed: %v", err)
	}
	id := e.ID

	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	// Should NOT be visible outside transaction
	_, err = store.GetEntity(id)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after rollback, got %v", err)
	}
}

func TestTx_ReleaseWithTracks(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	// Reconciliation inserts a release and its tracks as one unit.
	err := store.WithTx(func(tx *Tx) error {
		r := &Release{SourceAlbumID: "ALB1", ArtistSourceID: "A1", Title: "Discovery", RecordType: RecordAlbum, TrackCount: 2}
		if err := tx.AddRelease(r); err != nil {
			return err
		}
		for i, title := range []string{"One More Time", "Aerodynamic"} {
			tr := &Track{SourceTrackID: title, AlbumID: &r.ID, Title: title, Number: i + 1, Volume: 1}
			if err := tx.AddTrack(tr); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	rel, err := store.GetReleaseBySourceID("ALB1")
	if err != nil {
		t.Fatalf("GetReleaseBySourceID: %v", err)
	}
	tracks, err := store.TracksForRelease(rel.ID)
	if err != nil {
		t.Fatalf("TracksForRelease: %v", err)
	}
	if len(tracks) != 2 {
		t.Errorf("tracks = %d, want 2", len(tracks))
	}
}

func TestTx_WithTxRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	boom := errors.New("boom")
	err := store.WithTx(func(tx *Tx) error {
		r := &Release{SourceAlbumID: "ALB1", ArtistSourceID: "A1", Title: "Discovery", RecordType: RecordAlbum}
		if err := tx.AddRelease(r); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}

	_, err = store.GetReleaseBySourceID("ALB1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after rollback, got %v", err)
	}
}
