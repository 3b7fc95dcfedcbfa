package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/resonarr/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the catalog",
}

var searchArtistCmd = &cobra.Command{
	Use:   "artist <name>",
	Short: "Search artists ranked by name similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearchArtist,
}

func init() {
	searchArtistCmd.Flags().IntP("limit", "l", 10, "Maximum number of hits")

	searchCmd.AddCommand(searchArtistCmd)
	rootCmd.AddCommand(searchCmd)
}

// candidateJSON is the --json shape for search hits.
type candidateJSON struct {
	SourceID   string  `json:"source_id"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Confidence string  `json:"confidence"`
}

func runSearchArtist(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	name := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := cliLogger()
	cat, err := newCatalogClient(cfg, logger)
	if err != nil {
		return err
	}

	resolver := search.NewResolver(cat, logger)
	candidates, err := resolver.ArtistCandidates(cmd.Context(), name, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		out := make([]candidateJSON, 0, len(candidates))
		for _, c := range candidates {
			out = append(out, candidateJSON{
				SourceID:   c.SourceID,
				Name:       c.Name,
				Score:      c.Score,
				Confidence: c.Confidence.String(),
			})
		}
		printJSON(out)
		return nil
	}

	if len(candidates) == 0 {
		fmt.Printf("No artists found for %q.\n", name)
		return nil
	}

	fmt.Printf("Artists matching %q (%d):\n\n", name, len(candidates))
	printCandidates(candidates)
	return nil
}

// printCandidates renders ranked search hits; monitor add reuses it
// when a name is ambiguous.
func printCandidates(candidates []search.Candidate) {
	fmt.Printf("  %-6s %-10s %-12s %s\n", "SCORE", "CONFIDENCE", "SOURCE-ID", "NAME")
	fmt.Println("  " + strings.Repeat("-", 52))
	for _, c := range candidates {
		fmt.Printf("  %5.2f  %-10s %-12s %s\n", c.Score, c.Confidence, c.SourceID, c.Name)
	}
}
