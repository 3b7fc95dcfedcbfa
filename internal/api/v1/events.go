package v1

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vmunix/resonarr/internal/events"
)

func eventToResponse(e events.RawEvent) EventResponse {
	return EventResponse{
		ID:         e.ID,
		EventType:  e.EventType,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Payload:    json.RawMessage(e.Payload),
		OccurredAt: e.OccurredAt.Format(time.RFC3339),
	}
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	// Validate pagination parameters
	if limit < 0 || offset < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", "limit and offset must be non-negative")
		return
	}
	const maxLimit = 1000
	if limit > maxLimit {
		limit = maxLimit
	}

	if s.deps.EventLog == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_EVENT_LOG", "Event log not configured")
		return
	}

	raw, total, err := s.deps.EventLog.Recent(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}

	resp := listEventsResponse{
		Items:  make([]EventResponse, len(raw)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i, e := range raw {
		resp.Items[i] = eventToResponse(e)
	}

	writeJSON(w, http.StatusOK, resp)
}
