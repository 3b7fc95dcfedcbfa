// Package search resolves user-supplied artist names against the
// catalog, ranking hits by name similarity.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vmunix/resonarr/pkg/catalog"
)

// defaultSearchLimit bounds how many hits a resolution considers.
const defaultSearchLimit = 5

// Searcher is the slice of the catalog client the resolver consumes.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*catalog.SearchResults, error)
}

// Candidate is one ranked search hit.
type Candidate struct {
	SourceID   string
	Name       string
	Score      float64 // Jaro-Winkler similarity, number-adjusted
	Confidence Confidence
}

// Resolver maps names to catalog artists.
type Resolver struct {
	catalog Searcher
	log     *slog.Logger
}

// NewResolver creates a resolver over the catalog.
func NewResolver(cat Searcher, logger *slog.Logger) *Resolver {
	return &Resolver{
		catalog: cat,
		log:     logger.With("component", "search"),
	}
}

// ArtistCandidates searches the catalog and returns hits ranked by
// similarity to the name, best first.
func (r *Resolver) ArtistCandidates(ctx context.Context, name string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	results, err := r.catalog.Search(ctx, name, limit)
	if err != nil {
		return nil, fmt.Errorf("search artists: %w", err)
	}

	candidates := make([]Candidate, 0, len(results.Artists))
	for _, a := range results.Artists {
		score := Similarity(name, a.Name)
		candidates = append(candidates, Candidate{
			SourceID:   a.ID,
			Name:       a.Name,
			Score:      score,
			Confidence: confidenceOf(score),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	r.log.Debug("artist search", "query", name, "hits", len(candidates))
	return candidates, nil
}

// ResolveArtist picks the artist a name unambiguously denotes: an
// exact case-insensitive match wins, then a sole hit. Several hits
// with no exact match is ErrAmbiguous, returned alongside the ranked
// candidates so the caller can present them.
func (r *Resolver) ResolveArtist(ctx context.Context, name string) (*Candidate, []Candidate, error) {
	candidates, err := r.ArtistCandidates(ctx, name, defaultSearchLimit)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return nil, nil, fmt.Errorf("%w for %q", ErrNoMatch, name)
	}

	for i := range candidates {
		if strings.EqualFold(candidates[i].Name, name) {
			return &candidates[i], candidates, nil
		}
	}
	if len(candidates) == 1 {
		return &candidates[0], candidates, nil
	}
	return nil, candidates, fmt.Errorf("%w: %q matched %d artists", ErrAmbiguous, name, len(candidates))
}
