package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/resonarr/pkg/catalog"
)

type fakeSearcher struct {
	artists []catalog.Artist
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) (*catalog.SearchResults, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &catalog.SearchResults{Artists: f.artists}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newResolver(artists ...catalog.Artist) *Resolver {
	return NewResolver(&fakeSearcher{artists: artists}, testLogger())
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Radiohead", "radiohead"))
	assert.Greater(t, Similarity("Radiohead", "Radiohead"), Similarity("Radiohead", "Radium"))
	assert.Greater(t, Similarity("  The   Cure ", "The Cure"), 0.99)
}

func TestSimilarity_Numbers(t *testing.T) {
	exact := Similarity("Maroon 5", "Maroon 5")
	missing := Similarity("Maroon 5", "Maroon")
	wrong := Similarity("Maroon 5", "Maroon 6")

	assert.Equal(t, 1.0, exact)
	assert.Less(t, missing, exact)
	assert.Less(t, wrong, exact)
}

func TestConfidenceOf(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, confidenceOf(0.96))
	assert.Equal(t, ConfidenceMedium, confidenceOf(0.90))
	assert.Equal(t, ConfidenceLow, confidenceOf(0.75))
	assert.Equal(t, ConfidenceNone, confidenceOf(0.50))
	assert.Equal(t, "high", ConfidenceHigh.String())
	assert.Equal(t, "none", ConfidenceNone.String())
}

func TestArtistCandidates_Ranked(t *testing.T) {
	r := newResolver(
		catalog.Artist{ID: "1", Name: "Radium"},
		catalog.Artist{ID: "2", Name: "Radiohead"},
		catalog.Artist{ID: "3", Name: "Radio Dept"},
	)

	candidates, err := r.ArtistCandidates(context.Background(), "Radiohead", 10)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, "Radiohead", candidates[0].Name)
	assert.Equal(t, ConfidenceHigh, candidates[0].Confidence)
	for i := 1; i < len(candidates); i++ {
		assert.LessOrEqual(t, candidates[i].Score, candidates[i-1].Score)
	}
}

func TestResolveArtist_ExactMatchWins(t *testing.T) {
	r := newResolver(
		catalog.Artist{ID: "1", Name: "Nirvana UK"},
		catalog.Artist{ID: "2", Name: "Nirvana"},
	)

	resolved, candidates, err := r.ResolveArtist(context.Background(), "nirvana")
	require.NoError(t, err)
	assert.Equal(t, "2", resolved.SourceID)
	assert.Len(t, candidates, 2)
}

func TestResolveArtist_SingleHit(t *testing.T) {
	r := newResolver(catalog.Artist{ID: "7", Name: "Radiohead Tribute Band"})

	resolved, _, err := r.ResolveArtist(context.Background(), "radiohead")
	require.NoError(t, err)
	assert.Equal(t, "7", resolved.SourceID)
}

func TestResolveArtist_Ambiguous(t *testing.T) {
	r := newResolver(
		catalog.Artist{ID: "1", Name: "Nirvana UK"},
		catalog.Artist{ID: "2", Name: "Nirvana Cover Collective"},
	)

	resolved, candidates, err := r.ResolveArtist(context.Background(), "nirvana")
	require.ErrorIs(t, err, ErrAmbiguous)
	assert.Nil(t, resolved)
	require.Len(t, candidates, 2)
	assert.GreaterOrEqual(t, candidates[0].Score, candidates[1].Score)
}

func TestResolveArtist_NoMatch(t *testing.T) {
	r := newResolver()

	_, _, err := r.ResolveArtist(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNoMatch)
}

func TestResolveArtist_SearchError(t *testing.T) {
	r := NewResolver(&fakeSearcher{err: catalog.ErrUnavailable}, testLogger())

	_, _, err := r.ResolveArtist(context.Background(), "anyone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrUnavailable))
}
