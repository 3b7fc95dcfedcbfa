package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/internal/reconcile"
)

func TestParseDate(t *testing.T) {
	d, err := parseDate("2025-05-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), d)

	_, err = parseDate("05/02/2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestToReconcileJSON(t *testing.T) {
	rep := &reconcile.Report{
		Duration: 2 * time.Second,
		Results: []*reconcile.EntityResult{
			{
				Entity: &library.MonitoredEntity{ID: 1, Kind: library.KindArtist, DisplayName: "Nils Frahm"},
				NewReleases: []*library.Release{
					{SourceAlbumID: "B1", Title: "First Light"},
					{SourceAlbumID: "B2", Title: "Afterglow"},
				},
			},
			{
				Entity: &library.MonitoredEntity{ID: 2, Kind: library.KindPlaylist, DisplayName: "Morning Focus"},
				Err:    errors.New("listing failed"),
			},
		},
	}

	out := toReconcileJSON(rep)
	assert.Equal(t, 2, out.Entities)
	assert.Equal(t, 2, out.NewReleases)
	assert.Equal(t, 0, out.NewPlaylistTracks)
	assert.Equal(t, []string{"listing failed"}, out.Errors)
	assert.Equal(t, int64(2000), out.DurationMS)
}
