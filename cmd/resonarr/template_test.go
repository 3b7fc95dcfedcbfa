package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/resonarr/internal/naming"
)

func TestSampleContext_RendersDefaultTemplates(t *testing.T) {
	got, err := naming.Render(naming.DefaultAlbumTemplate, sampleContext())
	require.NoError(t, err)
	assert.Equal(t, "Nils Frahm/All Melody (2018)/02 - Sunson", got)

	got, err = naming.Render(naming.DefaultPlaylistTemplate, sampleContext())
	require.NoError(t, err)
	assert.Equal(t, "Playlists/Modern Classical/14 - Nils Frahm - Sunson", got)
}

func TestSampleContext_CoversAllScopes(t *testing.T) {
	ctx := sampleContext()
	assert.NotEmpty(t, ctx.Item.Title)
	assert.NotEmpty(t, ctx.Album.Title)
	assert.NotEmpty(t, ctx.Playlist.Title)
	assert.False(t, ctx.Album.Date.IsZero(), "sample album needs a date so {album.year} previews")
}
