package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/resonarr/internal/download"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download audio for albums, artists, tracks, or playlists",
	Long: `Downloads catalog audio into the configured library root, tagging
each file on completion. Albums known to the library go through the
claim protocol, so concurrent runs and the daemon never fetch the same
release twice.`,
}

func init() {
	pf := downloadCmd.PersistentFlags()
	pf.Bool("force", false, "Re-fetch releases already marked completed")
	pf.Bool("resume", false, "Keep tracks already on disk, fetch the rest")
	pf.Bool("dry-run", false, "Plan only; write nothing")
	pf.String("since", "", "Only releases dated on or after (YYYY-MM-DD)")
	pf.String("until", "", "Only releases dated on or before (YYYY-MM-DD)")
	pf.String("export", "", "Write resolved track links to a file instead of downloading")
	pf.Bool("also-download", false, "With --export, download as well")
	pf.Int("workers", 0, "Override the configured worker count")

	downloadCmd.AddCommand(
		&cobra.Command{
			Use:   "album <id>...",
			Short: "Download albums by catalog ID",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runDownloadKind(download.AlbumTarget),
		},
		&cobra.Command{
			Use:   "artist <id>...",
			Short: "Download full discographies",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runDownloadKind(download.ArtistTarget),
		},
		&cobra.Command{
			Use:   "track <id>...",
			Short: "Download single tracks",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runDownloadKind(download.TrackTarget),
		},
		&cobra.Command{
			Use:   "playlist <id>...",
			Short: "Download playlists",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runDownloadKind(download.PlaylistTarget),
		},
		&cobra.Command{
			Use:   "url <url>...",
			Short: "Download whatever share URLs point at",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runDownloadURL,
		},
		&cobra.Command{
			Use:   "monitored",
			Short: "Download every pending monitored release",
			Args:  cobra.NoArgs,
			RunE:  runDownloadMonitored,
		},
	)
	rootCmd.AddCommand(downloadCmd)
}

// runDownloadKind builds a RunE that maps each ID argument through the
// given target constructor.
func runDownloadKind(ctor func(string) download.Target) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		targets := make([]download.Target, 0, len(args))
		for _, id := range args {
			targets = append(targets, ctor(id))
		}
		return runDownloadTargets(cmd, targets)
	}
}

func runDownloadURL(cmd *cobra.Command, args []string) error {
	targets := make([]download.Target, 0, len(args))
	for _, raw := range args {
		t, err := download.URLTarget(raw)
		if err != nil {
			return err
		}
		targets = append(targets, t)
	}
	return runDownloadTargets(cmd, targets)
}

func runDownloadMonitored(cmd *cobra.Command, args []string) error {
	return runDownloadTargets(cmd, []download.Target{download.MonitoredTarget()})
}

// downloadOptions collects the shared flags into orchestrator options.
func downloadOptions(cmd *cobra.Command) (download.Options, error) {
	var opts download.Options
	var err error
	opts.Force, _ = cmd.Flags().GetBool("force")
	opts.Resume, _ = cmd.Flags().GetBool("resume")
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.Export, _ = cmd.Flags().GetString("export")
	opts.AlsoDownload, _ = cmd.Flags().GetBool("also-download")
	opts.Workers, _ = cmd.Flags().GetInt("workers")
	if opts.ReleasedSince, err = dateFlag(cmd, "since"); err != nil {
		return opts, err
	}
	if opts.ReleasedUntil, err = dateFlag(cmd, "until"); err != nil {
		return opts, err
	}
	return opts, nil
}

func runDownloadTargets(cmd *cobra.Command, targets []download.Target) error {
	opts, err := downloadOptions(cmd)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cat, err := a.catalogClient()
	if err != nil {
		return err
	}
	orch, err := a.newOrchestrator(cat)
	if err != nil {
		return err
	}

	rep, err := orch.Run(cmd.Context(), targets, opts)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(toDownloadJSON(rep))
	} else {
		printDownloadReport(rep)
	}
	if rep.HasFailures() {
		return fmt.Errorf("%d releases failed", rep.Failed())
	}
	return nil
}

// downloadResultJSON is the --json shape for one release outcome.
type downloadResultJSON struct {
	ReleaseID int64  `json:"release_id,omitempty"`
	SourceID  string `json:"source_id"`
	Title     string `json:"title"`
	Artist    string `json:"artist,omitempty"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
	Tracks    int    `json:"tracks"`
}

// downloadJSON is the --json shape for one orchestrator run.
type downloadJSON struct {
	Completed     int                  `json:"completed"`
	Skipped       int                  `json:"skipped"`
	Failed        int                  `json:"failed"`
	Planned       int                  `json:"planned"`
	DryRun        bool                 `json:"dry_run"`
	ExportPath    string               `json:"export_path,omitempty"`
	ExportedLinks int                  `json:"exported_links,omitempty"`
	DurationMS    int64                `json:"duration_ms"`
	Results       []downloadResultJSON `json:"results"`
}

func toDownloadJSON(rep *download.Report) downloadJSON {
	out := downloadJSON{
		Completed:     rep.Completed(),
		Skipped:       rep.Skipped(),
		Failed:        rep.Failed(),
		Planned:       rep.Planned(),
		DryRun:        rep.DryRun,
		ExportPath:    rep.ExportPath,
		ExportedLinks: rep.ExportedLinks,
		DurationMS:    rep.Duration.Milliseconds(),
		Results:       make([]downloadResultJSON, 0, len(rep.Results)),
	}
	for _, res := range rep.Results {
		r := downloadResultJSON{
			ReleaseID: res.ReleaseID,
			SourceID:  res.SourceID,
			Title:     res.Title,
			Artist:    res.Artist,
			Status:    string(res.Status),
			Reason:    res.Reason,
			Tracks:    len(res.Tracks),
		}
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
		out.Results = append(out.Results, r)
	}
	return out
}

func printDownloadReport(rep *download.Report) {
	if rep.ExportPath != "" {
		fmt.Printf("Exported %d track links to %s.\n", rep.ExportedLinks, rep.ExportPath)
	}
	if len(rep.Results) == 0 {
		if rep.ExportPath == "" {
			fmt.Println("Nothing to download.")
		}
		return
	}
	if rep.ExportPath != "" {
		fmt.Println()
	}

	head := "Downloads"
	if rep.DryRun {
		head = "Download plan (dry run)"
	}
	fmt.Printf("%s (%d releases, %s):\n\n", head, len(rep.Results), rep.Duration.Round(time.Millisecond))
	fmt.Printf("  %-10s %-22s %-36s %s\n", "STATUS", "ARTIST", "TITLE", "TRACKS")
	fmt.Println("  " + strings.Repeat("-", 78))
	for _, res := range rep.Results {
		note := ""
		if res.Reason != "" {
			note = " (" + res.Reason + ")"
		}
		fmt.Printf("  %-10s %-22s %-36s %s%s\n",
			res.Status, truncate(res.Artist, 22), truncate(res.Title, 36), trackSummary(res), note)
	}

	if rep.Failed() > 0 {
		fmt.Println("\nFailures:")
		for _, res := range rep.Results {
			if res.Status == download.ResultFailed && res.Err != nil {
				name := res.Title
				if name == "" {
					name = res.SourceID
				}
				fmt.Printf("  - %s: %v\n", name, res.Err)
			}
		}
	}

	fmt.Printf("\nCompleted: %d  Skipped: %d  Failed: %d  Planned: %d\n",
		rep.Completed(), rep.Skipped(), rep.Failed(), rep.Planned())
	fmt.Printf("Tracks: %d fetched, %d skipped, %d failed, %d planned\n",
		rep.TracksCompleted(), rep.TracksSkipped(), rep.TracksFailed(), rep.TracksPlanned())
}

// trackSummary renders fetched/total for a release row, counting
// planned fetches as done so dry runs read naturally.
func trackSummary(res *download.ReleaseResult) string {
	if len(res.Tracks) == 0 {
		return "-"
	}
	done := 0
	for _, tr := range res.Tracks {
		if tr.Status == download.ResultCompleted || tr.Status == download.ResultPlanned {
			done++
		}
	}
	return fmt.Sprintf("%d/%d", done, len(res.Tracks))
}
