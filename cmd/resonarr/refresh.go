package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/resonarr/internal/download"
	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/internal/reconcile"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reconcile monitored entities against the catalog",
	Long: `Fetches current listings for monitored artists and playlists and
records whatever the library has not seen. Existing rows are never
modified, so a refresh is always safe to re-run.`,
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().String("artist", "", "Refresh a single artist by source ID")
	refreshCmd.Flags().String("kind", "", "Restrict to one kind (artist, playlist)")
	refreshCmd.Flags().String("since", "", "Only record releases dated on or after (YYYY-MM-DD)")
	refreshCmd.Flags().String("until", "", "Only record releases dated on or before (YYYY-MM-DD)")
	refreshCmd.Flags().Bool("download", false, "Download discovered releases once the pass settles")
	refreshCmd.Flags().Bool("dry-run", false, "With --download, plan the downloads without writing files")

	rootCmd.AddCommand(refreshCmd)
}

// parseDate reads a YYYY-MM-DD value.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// dateFlag parses an optional date flag, nil when unset.
func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// reconcileJSON is the --json shape for one reconcile pass.
type reconcileJSON struct {
	Entities          int      `json:"entities"`
	NewReleases       int      `json:"new_releases"`
	NewPlaylistTracks int      `json:"new_playlist_tracks"`
	Errors            []string `json:"errors,omitempty"`
	DurationMS        int64    `json:"duration_ms"`
}

type refreshJSON struct {
	Reconcile reconcileJSON `json:"reconcile"`
	Downloads *downloadJSON `json:"downloads,omitempty"`
}

func toReconcileJSON(rep *reconcile.Report) reconcileJSON {
	out := reconcileJSON{
		Entities:          len(rep.Results),
		NewReleases:       rep.NewReleaseCount(),
		NewPlaylistTracks: rep.NewPlaylistTrackCount(),
		DurationMS:        rep.Duration.Milliseconds(),
	}
	for _, err := range rep.Errors() {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}

func runRefresh(cmd *cobra.Command, args []string) error {
	artistID, _ := cmd.Flags().GetString("artist")
	kindFlag, _ := cmd.Flags().GetString("kind")
	withDownload, _ := cmd.Flags().GetBool("download")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	scope := reconcile.Scope{}
	var err error
	if scope.ReleasedSince, err = dateFlag(cmd, "since"); err != nil {
		return err
	}
	if scope.ReleasedUntil, err = dateFlag(cmd, "until"); err != nil {
		return err
	}
	if kindFlag != "" {
		kind, err := library.ParseEntityKind(kindFlag)
		if err != nil {
			return err
		}
		scope.Kind = &kind
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if artistID != "" {
		ent, err := a.lib.GetEntityBySource(library.KindArtist, artistID)
		if err != nil {
			return fmt.Errorf("artist %s is not monitored", artistID)
		}
		scope.EntityIDs = []int64{ent.ID}
	}

	cat, err := a.catalogClient()
	if err != nil {
		return err
	}
	engine, err := a.newEngine(cat)
	if err != nil {
		return err
	}

	rep, err := engine.Reconcile(cmd.Context(), scope)
	if err != nil {
		return err
	}

	var drep *download.Report
	if withDownload && rep.NewReleaseCount() > 0 {
		orch, err := a.newOrchestrator(cat)
		if err != nil {
			return err
		}
		targets := make([]download.Target, 0, rep.NewReleaseCount())
		for _, id := range rep.AlbumTargets() {
			targets = append(targets, download.AlbumTarget(id))
		}
		drep, err = orch.Run(cmd.Context(), targets, download.Options{DryRun: dryRun})
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		out := refreshJSON{Reconcile: toReconcileJSON(rep)}
		if drep != nil {
			dj := toDownloadJSON(drep)
			out.Downloads = &dj
		}
		printJSON(out)
	} else {
		printReconcileReport(rep)
		switch {
		case drep != nil:
			fmt.Println()
			printDownloadReport(drep)
		case withDownload:
			fmt.Println("\nNothing new to download.")
		}
	}

	if n := rep.ErrorCount(); n > 0 {
		return fmt.Errorf("%d of %d entities failed", n, len(rep.Results))
	}
	if drep != nil && drep.HasFailures() {
		return fmt.Errorf("%d releases failed to download", drep.Failed())
	}
	return nil
}

func printReconcileReport(rep *reconcile.Report) {
	fmt.Printf("Reconcile pass (%d entities, %s):\n\n",
		len(rep.Results), rep.Duration.Round(time.Millisecond))
	fmt.Printf("  %-9s %-38s %5s  %s\n", "KIND", "ENTITY", "NEW", "STATUS")
	fmt.Println("  " + strings.Repeat("-", 62))
	for _, res := range rep.Results {
		n := len(res.NewReleases) + len(res.NewPlaylistTracks)
		status := "ok"
		if res.Err != nil {
			status = "error"
		}
		fmt.Printf("  %-9s %-38s %5d  %s\n",
			res.Entity.Kind, truncate(res.Entity.DisplayName, 38), n, status)
	}

	if rep.NewReleaseCount() > 0 {
		fmt.Println("\nNew releases:")
		for _, res := range rep.Results {
			for _, rel := range res.NewReleases {
				date := ""
				if rel.ReleaseDate != nil {
					date = " (" + rel.ReleaseDate.Format("2006-01-02") + ")"
				}
				fmt.Printf("  + [%-6s] %s - %s%s\n",
					rel.RecordType, res.Entity.DisplayName, rel.Title, date)
			}
		}
	}

	if rep.HasErrors() {
		fmt.Println("\nErrors:")
		for _, res := range rep.Results {
			if res.Err != nil {
				fmt.Printf("  - %s: %v\n", res.Entity.DisplayName, res.Err)
			}
		}
	}

	fmt.Printf("\n%d new releases, %d new playlist tracks, %d errors.\n",
		rep.NewReleaseCount(), rep.NewPlaylistTrackCount(), rep.ErrorCount())
}
