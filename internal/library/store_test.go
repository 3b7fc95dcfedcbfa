package library

import (
	"errors"
	"testing"
	"time"
)

func TestStore_AddEntity(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	e := &MonitoredEntity{
		Kind:        KindArtist,
		SourceID:    "12345",
		DisplayName: "Daft Punk",
	}

	before := time.Now()
	if err := store.AddEntity(e); err != nil {
		t.Fatalf("AddEntity: %v", err)
	}
	after := time.Now()

	if e.ID == 0 {
		t.Error("ID should be set after AddEntity")
	}
	if e.AddedAt.Before(before) || e.AddedAt.After(after) {
		t.Errorf("AddedAt %v not in expected range [%v, %v]", e.AddedAt, before, after)
	}
}

func TestStore_AddEntity_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	e := &MonitoredEntity{Kind: KindArtist, SourceID: "12345", DisplayName: "Daft Punk"}
	if err := store.AddEntity(e); err != nil {
		t.Fatalf("AddEntity: %v", err)
	}

	dup := &MonitoredEntity{Kind: KindArtist, SourceID: "12345", DisplayName: "Daft Punk (again)"}
	err := store.AddEntity(dup)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	// Same source id under a different kind is a distinct entity.
	pl := &MonitoredEntity{Kind: KindPlaylist, SourceID: "12345", DisplayName: "Some Playlist"}
	if err := store.AddEntity(pl); err != nil {
		t.Errorf("AddEntity with different kind: %v", err)
	}
}

func TestStore_GetEntity(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	original := &MonitoredEntity{Kind: KindPlaylist, SourceID: "7b2a6e8f-0000-4000-8000-000000000001", DisplayName: "Morning Mix"}
	if err := store.AddEntity(original); err != nil {
		t.Fatalf("AddEntity: %v", err)
	}

	retrieved, err := store.GetEntity(original.ID)
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}

	if retrieved.ID != original.ID {
		t.Errorf("ID = %d, want %d", retrieved.ID, original.ID)
	}
	if retrieved.Kind != KindPlaylist {
		t.Errorf("Kind = %q, want %q", retrieved.Kind, KindPlaylist)
	}
	if retrieved.SourceID != original.SourceID {
		t.Errorf("SourceID = %q, want %q", retrieved.SourceID, original.SourceID)
	}
	if retrieved.DisplayName != original.DisplayName {
		t.Errorf("DisplayName = %q, want %q", retrieved.DisplayName, original.DisplayName)
	}
	if retrieved.LastCheckedAt != nil {
		t.Errorf("LastCheckedAt = %v, want nil before first reconciliation", retrieved.LastCheckedAt)
	}
}

func TestStore_GetEntity_NotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	_, err := store.GetEntity(9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_GetEntityBySource(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	e := &MonitoredEntity{Kind: KindArtist, SourceID: "42", DisplayName: "Justice"}
	if err := store.AddEntity(e); err != nil {
		t.Fatalf("AddEntity: %v", err)
	}

	found, err := store.GetEntityBySource(KindArtist, "42")
	if err != nil {
		t.Fatalf("GetEntityBySource: %v", err)
	}
	if found == nil || found.ID != e.ID {
		t.Errorf("GetEntityBySource = %+v, want entity %d", found, e.ID)
	}

	missing, err := store.GetEntityBySource(KindPlaylist, "42")
	if err != nil {
		t.Fatalf("GetEntityBySource (missing): %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unmonitored source, got %+v", missing)
	}
}

func TestStore_ListEntities(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	for _, e := range []*MonitoredEntity{
		{Kind: KindArtist, SourceID: "1", DisplayName: "Air"},
		{Kind: KindArtist, SourceID: "2", DisplayName: "Breakbot"},
		{Kind: KindPlaylist, SourceID: "3", DisplayName: "Focus"},
	} {
		if err := store.AddEntity(e); err != nil {
			t.Fatalf("AddEntity: %v", err)
		}
	}

	all, total, err := store.ListEntities(EntityFilter{})
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("ListEntities = %d rows, total %d, want 3/3", len(all), total)
	}

	artists, total, err := store.ListEntities(EntityFilter{Kind: ptr(KindArtist)})
	if err != nil {
		t.Fatalf("ListEntities(artist): %v", err)
	}
	if total != 2 || len(artists) != 2 {
		t.Errorf("artist filter = %d rows, total %d, want 2/2", len(artists), total)
	}

	paged, total, err := store.ListEntities(EntityFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListEntities(paged): %v", err)
	}
	if total != 3 {
		t.Errorf("paged total = %d, want 3", total)
	}
	if len(paged) != 1 || paged[0].SourceID != "2" {
		t.Errorf("paged = %+v, want single row with SourceID 2", paged)
	}
}

func TestStore_DeleteEntity(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	e := &MonitoredEntity{Kind: KindArtist, SourceID: "1", DisplayName: "Air"}
	if err := store.AddEntity(e); err != nil {
		t.Fatalf("AddEntity: %v", err)
	}

	if err := store.DeleteEntity(e.ID); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	_, err := store.GetEntity(e.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Idempotent
	if err := store.DeleteEntity(e.ID); err != nil {
		t.Errorf("second DeleteEntity: %v", err)
	}
}

func TestStore_TouchEntityChecked(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	e := &MonitoredEntity{Kind: KindArtist, SourceID: "1", DisplayName: "Air"}
	if err := store.AddEntity(e); err != nil {
		t.Fatalf("AddEntity: %v", err)
	}

	checked := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := store.TouchEntityChecked(e.ID, checked); err != nil {
		t.Fatalf("TouchEntityChecked: %v", err)
	}

	got, err := store.GetEntity(e.ID)
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if got.LastCheckedAt == nil || !got.LastCheckedAt.Equal(checked) {
		t.Errorf("LastCheckedAt = %v, want %v", got.LastCheckedAt, checked)
	}

	err = store.TouchEntityChecked(9999, checked)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing entity, got %v", err)
	}
}
