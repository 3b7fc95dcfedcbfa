// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vmunix/resonarr/internal/download"
	"github.com/vmunix/resonarr/internal/events"
	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/internal/reconcile"
)

// Server is the v1 API server.
type Server struct {
	deps ServerDeps
	log  *slog.Logger
}

// New creates a new v1 API server.
func New(deps ServerDeps, logger *slog.Logger) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingDependency, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{deps: deps, log: logger.With("component", "api")}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("GET /api/v1/status", s.getStatus)
	mux.HandleFunc("GET /api/v1/verify", s.verify)

	// Monitored entities
	mux.HandleFunc("GET /api/v1/entities", s.listEntities)

	// Releases
	mux.HandleFunc("GET /api/v1/releases", s.listReleases)
	mux.HandleFunc("POST /api/v1/releases/{id}/requeue", s.requeueRelease)
	mux.HandleFunc("GET /api/v1/releases/{id}/events", s.listReleaseEvents)

	// Actions
	mux.HandleFunc("POST /api/v1/reconcile", s.requireReconciler(s.triggerReconcile))
	mux.HandleFunc("POST /api/v1/downloads", s.requireDownloader(s.triggerDownloads))

	// Events
	mux.HandleFunc("GET /api/v1/events", s.listEvents)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// pathID extracts an integer ID from the URL path.
func pathID(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	if idStr == "" {
		return 0, fmt.Errorf("missing path parameter: id")
	}
	return strconv.ParseInt(idStr, 10, 64)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// queryString extracts an optional string from query string.
func queryString(r *http.Request, name string) *string {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil
	}
	return &val
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	_, entities, err := s.deps.Library.ListEntities(library.EntityFilter{Limit: 1})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	statuses := []library.DownloadStatus{
		library.StatusPending,
		library.StatusDownloading,
		library.StatusCompleted,
		library.StatusFailed,
		library.StatusSkipped,
	}
	releases := make(map[string]int, len(statuses))
	for _, st := range statuses {
		_, total, err := s.deps.Library.ListReleases(library.ReleaseFilter{DownloadStatus: &st, Limit: 1})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
			return
		}
		releases[string(st)] = total
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:   "ok",
		Entities: entities,
		Releases: releases,
	})
}

func (s *Server) listEntities(w http.ResponseWriter, r *http.Request) {
	filter := library.EntityFilter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	if kindStr := queryString(r, "kind"); kindStr != nil {
		kind, err := library.ParseEntityKind(*kindStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_KIND", err.Error())
			return
		}
		filter.Kind = &kind
	}

	items, total, err := s.deps.Library.ListEntities(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	resp := listEntitiesResponse{
		Items:  make([]entityResponse, len(items)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for i, e := range items {
		resp.Items[i] = entityToResponse(e)
	}

	writeJSON(w, http.StatusOK, resp)
}

func entityToResponse(e *library.MonitoredEntity) entityResponse {
	return entityResponse{
		ID:            e.ID,
		Kind:          string(e.Kind),
		SourceID:      e.SourceID,
		DisplayName:   e.DisplayName,
		AddedAt:       e.AddedAt,
		LastCheckedAt: e.LastCheckedAt,
	}
}

func (s *Server) listReleases(w http.ResponseWriter, r *http.Request) {
	filter := library.ReleaseFilter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	if statusStr := queryString(r, "status"); statusStr != nil {
		st, err := library.ParseDownloadStatus(*statusStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_STATUS", err.Error())
			return
		}
		filter.DownloadStatus = &st
	}
	if artist := queryString(r, "artist"); artist != nil {
		filter.ArtistSourceID = artist
	}
	if typeStr := queryString(r, "type"); typeStr != nil {
		rt, err := library.ParseRecordType(*typeStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_TYPE", err.Error())
			return
		}
		filter.RecordType = &rt
	}

	items, total, err := s.deps.Library.ListReleases(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	resp := listReleasesResponse{
		Items:  make([]releaseResponse, len(items)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for i, rel := range items {
		resp.Items[i] = releaseToResponse(rel)
	}

	writeJSON(w, http.StatusOK, resp)
}

func releaseToResponse(rel *library.Release) releaseResponse {
	resp := releaseResponse{
		ID:             rel.ID,
		SourceAlbumID:  rel.SourceAlbumID,
		ArtistSourceID: rel.ArtistSourceID,
		Title:          rel.Title,
		RecordType:     string(rel.RecordType),
		TrackCount:     rel.TrackCount,
		Explicit:       rel.Explicit,
		DownloadStatus: string(rel.DownloadStatus),
		DiscoveredAt:   rel.DiscoveredAt,
		LastAttemptAt:  rel.LastAttemptAt,
	}
	if rel.ReleaseDate != nil {
		resp.ReleaseDate = rel.ReleaseDate.Format("2006-01-02")
	}
	return resp
}

func (s *Server) requeueRelease(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	if err := s.deps.Downloads.Requeue(id); err != nil {
		switch {
		case errors.Is(err, library.ErrNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Release not found")
		case errors.Is(err, library.ErrConstraint):
			writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		}
		return
	}

	rel, err := s.deps.Library.GetRelease(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, releaseToResponse(rel))
}

func (s *Server) triggerReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	scope := reconcile.Scope{EntityIDs: req.EntityIDs}
	if req.Kind != "" {
		kind, err := library.ParseEntityKind(req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_KIND", err.Error())
			return
		}
		scope.Kind = &kind
	}

	report, err := s.deps.Reconciler.Reconcile(r.Context(), scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "RECONCILE_ERROR", err.Error())
		return
	}

	resp := reconcileResponse{
		Entities:          len(report.Results),
		NewReleases:       report.NewReleaseCount(),
		NewPlaylistTracks: report.NewPlaylistTrackCount(),
		DurationMS:        report.Duration.Milliseconds(),
	}
	for _, err := range report.Errors() {
		resp.Errors = append(resp.Errors, err.Error())
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) triggerDownloads(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	var targets []download.Target
	for _, link := range req.Links {
		target, err := download.URLTarget(link)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_LINK", err.Error())
			return
		}
		targets = append(targets, target)
	}
	for _, id := range req.AlbumIDs {
		targets = append(targets, download.AlbumTarget(id))
	}
	if req.Monitored {
		targets = append(targets, download.MonitoredTarget())
	}
	if len(targets) == 0 {
		writeError(w, http.StatusBadRequest, "NO_TARGETS", "no links, album ids, or monitored flag given")
		return
	}

	report, err := s.deps.Downloader.Run(r.Context(), targets, download.Options{
		Force:   req.Force,
		DryRun:  req.DryRun,
		Resume:  req.Resume,
		Workers: req.Workers,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DOWNLOAD_ERROR", err.Error())
		return
	}

	resp := downloadResponse{
		Completed:  report.Completed(),
		Skipped:    report.Skipped(),
		Failed:     report.Failed(),
		Planned:    report.Planned(),
		DryRun:     report.DryRun,
		DurationMS: report.Duration.Milliseconds(),
		Results:    make([]downloadResultResponse, len(report.Results)),
	}
	for i, res := range report.Results {
		rr := downloadResultResponse{
			ReleaseID: res.ReleaseID,
			SourceID:  res.SourceID,
			Title:     res.Title,
			Artist:    res.Artist,
			Status:    string(res.Status),
			Reason:    res.Reason,
			Tracks:    len(res.Tracks),
		}
		if res.Err != nil {
			rr.Error = res.Err.Error()
		}
		resp.Results[i] = rr
	}

	writeJSON(w, http.StatusOK, resp)
}

// entityEventID returns the event-log entity ID for a release. Discovery
// and download events key on the catalog album ID, not the row ID.
func entityEventID(rel *library.Release) string {
	return rel.SourceAlbumID
}

func (s *Server) listReleaseEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	if s.deps.EventLog == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_EVENT_LOG", "Event log not configured")
		return
	}

	rel, err := s.deps.Library.GetRelease(id)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Release not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	raw, err := s.deps.EventLog.ForEntity(events.EntityRelease, entityEventID(rel))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}

	resp := listEventsResponse{
		Items:  make([]EventResponse, len(raw)),
		Total:  len(raw),
		Limit:  len(raw),
		Offset: 0,
	}
	for i, e := range raw {
		resp.Items[i] = eventToResponse(e)
	}

	writeJSON(w, http.StatusOK, resp)
}
