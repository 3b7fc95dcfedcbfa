package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vmunix/resonarr/internal/events"
)

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()

	assert.Equal(t, "never", formatTimeAgo(time.Time{}))
	assert.Equal(t, "just now", formatTimeAgo(now.Add(-30*time.Second)))
	assert.Equal(t, "5m ago", formatTimeAgo(now.Add(-5*time.Minute)))
	assert.Equal(t, "1h ago", formatTimeAgo(now.Add(-90*time.Minute)))
	assert.Equal(t, "2h ago", formatTimeAgo(now.Add(-2*time.Hour)))
	assert.Equal(t, "1d ago", formatTimeAgo(now.Add(-25*time.Hour)))
	assert.Equal(t, "3d ago", formatTimeAgo(now.Add(-73*time.Hour)))
}

func TestFilterEventType(t *testing.T) {
	evts := []events.RawEvent{
		{ID: 1, EventType: "release.discovered"},
		{ID: 2, EventType: "download.completed"},
		{ID: 3, EventType: "release.discovered"},
	}

	got := filterEventType(evts, "release.discovered")
	assert.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	assert.Empty(t, filterEventType(got, "download.failed"))
}

func TestReverseEvents(t *testing.T) {
	evts := []events.RawEvent{{ID: 1}, {ID: 2}, {ID: 3}}
	reverseEvents(evts)
	assert.Equal(t, int64(3), evts[0].ID)
	assert.Equal(t, int64(1), evts[2].ID)

	single := []events.RawEvent{{ID: 7}}
	reverseEvents(single)
	assert.Equal(t, int64(7), single[0].ID)
}
