// internal/api/v1/api_test.go
package v1

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vmunix/resonarr/internal/api/v1/mocks"
	"github.com/vmunix/resonarr/internal/download"
	"github.com/vmunix/resonarr/internal/events"
	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/internal/migrations"
	"github.com/vmunix/resonarr/internal/reconcile"
	"go.uber.org/mock/gomock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	require.NoError(t, err, "open db")
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(migrations.InitialSQL)
	require.NoError(t, err, "apply schema")
	return db
}

// newTestServer builds a server over the given DB with both stores and an
// event log wired. mutate adjusts the deps before construction.
func newTestServer(t *testing.T, db *sql.DB, mutate func(*ServerDeps)) *Server {
	t.Helper()
	deps := ServerDeps{
		Library:   library.NewStore(db),
		Downloads: download.NewStore(db),
		EventLog:  events.NewEventLog(db),
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := New(deps, testLogger())
	require.NoError(t, err)
	return srv
}

func newTestMux(t *testing.T, srv *Server) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	return mux
}

func seedEntity(t *testing.T, lib *library.Store, kind library.EntityKind, sourceID, name string) *library.MonitoredEntity {
	t.Helper()
	e := &library.MonitoredEntity{Kind: kind, SourceID: sourceID, DisplayName: name}
	require.NoError(t, lib.AddEntity(e))
	return e
}

func seedRelease(t *testing.T, lib *library.Store, artistID, sourceID string, status library.DownloadStatus) *library.Release {
	t.Helper()
	rel := &library.Release{
		SourceAlbumID:  sourceID,
		ArtistSourceID: artistID,
		Title:          "Album " + sourceID,
		RecordType:     library.RecordAlbum,
		TrackCount:     2,
		DownloadStatus: status,
	}
	require.NoError(t, lib.AddRelease(rel))
	return rel
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestNew_RequiresStores(t *testing.T) {
	db := setupTestDB(t)

	_, err := New(ServerDeps{}, testLogger())
	require.ErrorIs(t, err, ErrMissingDependency)

	_, err = New(ServerDeps{Library: library.NewStore(db)}, testLogger())
	require.ErrorIs(t, err, ErrMissingDependency)

	srv, err := New(ServerDeps{
		Library:   library.NewStore(db),
		Downloads: download.NewStore(db),
	}, testLogger())
	require.NoError(t, err)
	require.NotNil(t, srv)
}

func TestGetStatus(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)
	lib := srv.deps.Library

	seedEntity(t, lib, library.KindArtist, "A1", "Artist One")
	seedRelease(t, lib, "A1", "B1", library.StatusPending)
	seedRelease(t, lib, "A1", "B2", library.StatusPending)
	seedRelease(t, lib, "A1", "B3", library.StatusCompleted)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.getStatus(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Entities)
	assert.Equal(t, 2, resp.Releases["pending"])
	assert.Equal(t, 1, resp.Releases["completed"])
	assert.Equal(t, 0, resp.Releases["failed"])
}

func TestListEntities_Empty(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities", nil)
	w := httptest.NewRecorder()
	srv.listEntities(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp listEntitiesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
	assert.Zero(t, resp.Total)
}

func TestListEntities(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)
	lib := srv.deps.Library

	seedEntity(t, lib, library.KindArtist, "A1", "Artist One")
	seedEntity(t, lib, library.KindPlaylist, "11111111-2222-3333-4444-555555555555", "Mix")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities", nil)
	w := httptest.NewRecorder()
	srv.listEntities(w, req)

	var resp listEntitiesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Items, 2)

	// Kind filter
	req = httptest.NewRequest(http.MethodGet, "/api/v1/entities?kind=artist", nil)
	w = httptest.NewRecorder()
	srv.listEntities(w, req)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "A1", resp.Items[0].SourceID)
	assert.Equal(t, "artist", resp.Items[0].Kind)
}

func TestListEntities_BadKind(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities?kind=label", nil)
	w := httptest.NewRecorder()
	srv.listEntities(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_KIND", decodeError(t, w).Code)
}

func TestListReleases_Filters(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)
	lib := srv.deps.Library

	seedRelease(t, lib, "A1", "B1", library.StatusPending)
	seedRelease(t, lib, "A1", "B2", library.StatusCompleted)
	seedRelease(t, lib, "A2", "B3", library.StatusPending)

	// No filter
	req := httptest.NewRequest(http.MethodGet, "/api/v1/releases", nil)
	w := httptest.NewRecorder()
	srv.listReleases(w, req)

	var resp listReleasesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)

	// Status filter
	req = httptest.NewRequest(http.MethodGet, "/api/v1/releases?status=pending", nil)
	w = httptest.NewRecorder()
	srv.listReleases(w, req)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	for _, item := range resp.Items {
		assert.Equal(t, "pending", item.DownloadStatus)
	}

	// Artist filter
	req = httptest.NewRequest(http.MethodGet, "/api/v1/releases?artist=A2", nil)
	w = httptest.NewRecorder()
	srv.listReleases(w, req)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "B3", resp.Items[0].SourceAlbumID)

	// Record type filter
	req = httptest.NewRequest(http.MethodGet, "/api/v1/releases?type=SINGLE", nil)
	w = httptest.NewRecorder()
	srv.listReleases(w, req)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Total)
}

func TestListReleases_BadFilters(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/releases?status=bogus", nil)
	w := httptest.NewRecorder()
	srv.listReleases(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATUS", decodeError(t, w).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/releases?type=MIXTAPE", nil)
	w = httptest.NewRecorder()
	srv.listReleases(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_TYPE", decodeError(t, w).Code)
}

func TestRequeueRelease(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)
	rel := seedRelease(t, srv.deps.Library, "A1", "B1", library.StatusSkipped)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/releases/1/requeue", nil)
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	srv.requeueRelease(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp releaseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, rel.ID, resp.ID)
	assert.Equal(t, "pending", resp.DownloadStatus)

	got, err := srv.deps.Library.GetRelease(rel.ID)
	require.NoError(t, err)
	assert.Equal(t, library.StatusPending, got.DownloadStatus)
}

func TestRequeueRelease_NotFound(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/releases/999/requeue", nil)
	req.SetPathValue("id", "999")
	w := httptest.NewRecorder()
	srv.requeueRelease(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}

func TestRequeueRelease_WrongStatus(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)
	seedRelease(t, srv.deps.Library, "A1", "B1", library.StatusPending)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/releases/1/requeue", nil)
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	srv.requeueRelease(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, w).Code)
}

func TestTriggerReconcile(t *testing.T) {
	db := setupTestDB(t)
	ctrl := gomock.NewController(t)

	mockRec := mocks.NewMockReconciler(ctrl)
	var gotScope reconcile.Scope
	mockRec.EXPECT().
		Reconcile(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, scope reconcile.Scope) (*reconcile.Report, error) {
			gotScope = scope
			return &reconcile.Report{
				Duration: 1500 * time.Millisecond,
				Results: []*reconcile.EntityResult{
					{NewReleases: []*library.Release{{SourceAlbumID: "B9"}}},
					{Err: assert.AnError},
				},
			}, nil
		})

	srv := newTestServer(t, db, func(d *ServerDeps) { d.Reconciler = mockRec })
	mux := newTestMux(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", strings.NewReader(`{"kind":"artist"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, gotScope.Kind)
	assert.Equal(t, library.KindArtist, *gotScope.Kind)

	var resp reconcileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Entities)
	assert.Equal(t, 1, resp.NewReleases)
	assert.Len(t, resp.Errors, 1)
	assert.Equal(t, int64(1500), resp.DurationMS)
}

func TestTriggerReconcile_EmptyBody(t *testing.T) {
	db := setupTestDB(t)
	ctrl := gomock.NewController(t)

	mockRec := mocks.NewMockReconciler(ctrl)
	mockRec.EXPECT().
		Reconcile(gomock.Any(), reconcile.Scope{}).
		Return(&reconcile.Report{}, nil)

	srv := newTestServer(t, db, func(d *ServerDeps) { d.Reconciler = mockRec })
	mux := newTestMux(t, srv)

	// An empty body reconciles everything monitored.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTriggerReconcile_BadKind(t *testing.T) {
	db := setupTestDB(t)
	ctrl := gomock.NewController(t)

	srv := newTestServer(t, db, func(d *ServerDeps) { d.Reconciler = mocks.NewMockReconciler(ctrl) })
	mux := newTestMux(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", strings.NewReader(`{"kind":"label"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_KIND", decodeError(t, w).Code)
}

func TestTriggerReconcile_NotConfigured(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)
	mux := newTestMux(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, w).Code)
}

func TestTriggerDownloads(t *testing.T) {
	db := setupTestDB(t)
	ctrl := gomock.NewController(t)

	mockDl := mocks.NewMockDownloader(ctrl)
	var gotTargets []download.Target
	var gotOpts download.Options
	mockDl.EXPECT().
		Run(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, targets []download.Target, opts download.Options) (*download.Report, error) {
			gotTargets = targets
			gotOpts = opts
			return &download.Report{
				DryRun:   false,
				Duration: 2 * time.Second,
				Results: []*download.ReleaseResult{
					{SourceID: "12345", Title: "Album One", Status: download.ResultCompleted, Tracks: make([]download.TrackResult, 2)},
					{SourceID: "B7", Title: "Album Two", Status: download.ResultSkipped, Reason: "all tracks already on disk"},
				},
			}, nil
		})

	srv := newTestServer(t, db, func(d *ServerDeps) { d.Downloader = mockDl })
	mux := newTestMux(t, srv)

	body := `{"links":["https://music.example.com/album/12345"],"album_ids":["B7"],"monitored":true,"force":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/downloads", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	require.Len(t, gotTargets, 3)
	assert.Equal(t, download.Target{Kind: download.TargetAlbum, ID: "12345"}, gotTargets[0])
	assert.Equal(t, download.Target{Kind: download.TargetAlbum, ID: "B7"}, gotTargets[1])
	assert.Equal(t, download.Target{Kind: download.TargetMonitored}, gotTargets[2])
	assert.True(t, gotOpts.Force)
	assert.False(t, gotOpts.DryRun)

	var resp downloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Completed)
	assert.Equal(t, 1, resp.Skipped)
	assert.Zero(t, resp.Failed)
	assert.Equal(t, int64(2000), resp.DurationMS)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.Results[0].Tracks)
	assert.Equal(t, "all tracks already on disk", resp.Results[1].Reason)
}

func TestTriggerDownloads_BadLink(t *testing.T) {
	db := setupTestDB(t)
	ctrl := gomock.NewController(t)

	srv := newTestServer(t, db, func(d *ServerDeps) { d.Downloader = mocks.NewMockDownloader(ctrl) })
	mux := newTestMux(t, srv)

	body := `{"links":["https://music.example.com/profile/someone"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/downloads", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_LINK", decodeError(t, w).Code)
}

func TestTriggerDownloads_NoTargets(t *testing.T) {
	db := setupTestDB(t)
	ctrl := gomock.NewController(t)

	srv := newTestServer(t, db, func(d *ServerDeps) { d.Downloader = mocks.NewMockDownloader(ctrl) })
	mux := newTestMux(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/downloads", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NO_TARGETS", decodeError(t, w).Code)
}

func TestTriggerDownloads_NotConfigured(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)
	mux := newTestMux(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/downloads", strings.NewReader(`{"album_ids":["B1"]}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, w).Code)
}

func TestListEvents(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)
	el := srv.deps.EventLog

	for _, id := range []string{"B1", "B2", "B3"} {
		_, err := el.Append(events.ReleaseDiscovered{
			BaseEvent: events.NewBaseEvent(events.EventReleaseDiscovered, events.EntityRelease, id),
			Title:     "Album " + id,
		})
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	w := httptest.NewRecorder()
	srv.listEvents(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp listEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Items, 3)
	// Newest first
	assert.Equal(t, "B3", resp.Items[0].EntityID)
	assert.Equal(t, events.EventReleaseDiscovered, resp.Items[0].EventType)
	assert.NotEmpty(t, resp.Items[0].Payload)

	// Pagination
	req = httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=1&offset=1", nil)
	w = httptest.NewRecorder()
	srv.listEvents(w, req)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "B2", resp.Items[0].EntityID)
}

func TestListEvents_InvalidPagination(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=-1", nil)
	w := httptest.NewRecorder()
	srv.listEvents(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PAGINATION", decodeError(t, w).Code)
}

func TestListEvents_NoEventLog(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, func(d *ServerDeps) { d.EventLog = nil })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	w := httptest.NewRecorder()
	srv.listEvents(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "NO_EVENT_LOG", decodeError(t, w).Code)
}

func TestListReleaseEvents(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)
	rel := seedRelease(t, srv.deps.Library, "A1", "B1", library.StatusPending)

	// Events key on the catalog album ID, so only B1's show up for this row.
	for _, id := range []string{"B1", "B2"} {
		_, err := srv.deps.EventLog.Append(events.ReleaseDiscovered{
			BaseEvent: events.NewBaseEvent(events.EventReleaseDiscovered, events.EntityRelease, id),
		})
		require.NoError(t, err)
	}
	_, err := srv.deps.EventLog.Append(events.ReleaseStatusChanged{
		BaseEvent: events.NewBaseEvent(events.EventReleaseStatusChanged, events.EntityRelease, "B1"),
		OldStatus: "pending",
		NewStatus: "downloading",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/releases/1/events", nil)
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	srv.listReleaseEvents(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp listEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	for _, item := range resp.Items {
		assert.Equal(t, rel.SourceAlbumID, item.EntityID)
	}
}

func TestListReleaseEvents_NotFound(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/releases/999/events", nil)
	req.SetPathValue("id", "999")
	w := httptest.NewRecorder()
	srv.listReleaseEvents(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w).Code)
}

func TestVerify(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)
	lib := srv.deps.Library

	fresh := seedRelease(t, lib, "A1", "B1", library.StatusPending)
	stale := seedRelease(t, lib, "A1", "B2", library.StatusPending)

	_, err := srv.deps.Downloads.Claim(fresh.ID, false)
	require.NoError(t, err)
	_, err = srv.deps.Downloads.Claim(stale.ID, false)
	require.NoError(t, err)

	// Age the second claim past the default 30 minute lease.
	_, err = db.Exec("UPDATE releases SET last_attempt_at = ? WHERE id = ?",
		time.Now().Add(-2*time.Hour), stale.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verify", nil)
	w := httptest.NewRecorder()
	srv.verify(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Checked)
	assert.Equal(t, 1, resp.Passed)
	require.Len(t, resp.Problems, 1)
	assert.Equal(t, stale.ID, resp.Problems[0].ReleaseID)
	assert.Equal(t, "downloading", resp.Problems[0].Status)
	assert.Contains(t, resp.Problems[0].Issue, "lease")
}

func TestVerify_NoInflight(t *testing.T) {
	db := setupTestDB(t)
	srv := newTestServer(t, db, nil)
	seedRelease(t, srv.deps.Library, "A1", "B1", library.StatusCompleted)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verify", nil)
	w := httptest.NewRecorder()
	srv.verify(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Checked)
	assert.NotNil(t, resp.Problems)
}
