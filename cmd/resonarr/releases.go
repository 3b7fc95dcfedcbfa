package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/resonarr/internal/library"
)

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "Browse and manage discovered releases",
}

var releasesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered releases",
	RunE:  runReleasesList,
}

var releasesRequeueCmd = &cobra.Command{
	Use:   "requeue <id>",
	Short: "Move a skipped release back to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  runReleasesRequeue,
}

var releasesSkipCmd = &cobra.Command{
	Use:   "skip <id>",
	Short: "Mark a pending or failed release skipped",
	Long:  "Skipped releases are passed over by bulk downloads until requeued.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReleasesSkip,
}

func init() {
	releasesListCmd.Flags().StringP("status", "s", "", "Filter by download status (pending, downloading, completed, failed, skipped)")
	releasesListCmd.Flags().String("artist", "", "Filter by artist source ID")
	releasesListCmd.Flags().StringP("type", "t", "", "Filter by record type (ALBUM, EP, SINGLE, COMPILATION)")
	releasesListCmd.Flags().String("since", "", "Released on or after (YYYY-MM-DD)")
	releasesListCmd.Flags().String("until", "", "Released on or before (YYYY-MM-DD)")
	releasesListCmd.Flags().IntP("limit", "l", 50, "Maximum number of releases to show")

	releasesCmd.AddCommand(releasesListCmd)
	releasesCmd.AddCommand(releasesRequeueCmd)
	releasesCmd.AddCommand(releasesSkipCmd)
	rootCmd.AddCommand(releasesCmd)
}

// releaseFilterFromFlags validates the list flags into a store filter.
func releaseFilterFromFlags(cmd *cobra.Command) (library.ReleaseFilter, error) {
	var filter library.ReleaseFilter

	if s, _ := cmd.Flags().GetString("status"); s != "" {
		status, err := library.ParseDownloadStatus(s)
		if err != nil {
			return filter, err
		}
		filter.DownloadStatus = &status
	}
	if artist, _ := cmd.Flags().GetString("artist"); artist != "" {
		filter.ArtistSourceID = &artist
	}
	if t, _ := cmd.Flags().GetString("type"); t != "" {
		rt, err := library.ParseRecordType(t)
		if err != nil {
			return filter, err
		}
		filter.RecordType = &rt
	}
	var err error
	if filter.ReleasedSince, err = dateFlag(cmd, "since"); err != nil {
		return filter, err
	}
	if filter.ReleasedUntil, err = dateFlag(cmd, "until"); err != nil {
		return filter, err
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	return filter, nil
}

// releaseJSON is the --json shape for releases.
type releaseJSON struct {
	ID             int64      `json:"id"`
	SourceAlbumID  string     `json:"source_album_id"`
	ArtistSourceID string     `json:"artist_source_id"`
	Title          string     `json:"title"`
	ReleaseDate    string     `json:"release_date,omitempty"`
	RecordType     string     `json:"record_type"`
	TrackCount     int        `json:"track_count"`
	Explicit       bool       `json:"explicit"`
	DownloadStatus string     `json:"download_status"`
	DiscoveredAt   time.Time  `json:"discovered_at"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
}

func toReleaseJSON(rel *library.Release) releaseJSON {
	out := releaseJSON{
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
		out.ReleaseDate = rel.ReleaseDate.Format("2006-01-02")
	}
	return out
}

func runReleasesList(cmd *cobra.Command, args []string) error {
	filter, err := releaseFilterFromFlags(cmd)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	releases, total, err := a.lib.ListReleases(filter)
	if err != nil {
		return err
	}

	if jsonOutput {
		out := make([]releaseJSON, 0, len(releases))
		for _, rel := range releases {
			out = append(out, toReleaseJSON(rel))
		}
		printJSON(out)
		return nil
	}

	if len(releases) == 0 {
		fmt.Println("No releases match.")
		return nil
	}

	names := artistNames(a.lib)
	fmt.Printf("Releases (%d of %d):\n\n", len(releases), total)
	fmt.Printf("  %-5s %-11s %-6s %-11s %-24s %s\n", "ID", "STATUS", "TYPE", "DATE", "ARTIST", "TITLE")
	fmt.Println("  " + strings.Repeat("-", 86))
	for _, rel := range releases {
		date := "-"
		if rel.ReleaseDate != nil {
			date = rel.ReleaseDate.Format("2006-01-02")
		}
		artist := names[rel.ArtistSourceID]
		if artist == "" {
			artist = rel.ArtistSourceID
		}
		fmt.Printf("  %-5d %-11s %-6s %-11s %-24s %s\n",
			rel.ID, rel.DownloadStatus, rel.RecordType, date,
			truncate(artist, 24), truncate(rel.Title, 36))
	}
	if total > len(releases) {
		fmt.Printf("\n  Showing %d of %d releases. Use --limit to see more.\n", len(releases), total)
	}
	return nil
}

// artistNames maps artist source IDs to display names for listing.
// A fetch failure just leaves IDs unresolved.
func artistNames(lib *library.Store) map[string]string {
	names := make(map[string]string)
	entities, _, err := lib.ListEntities(library.EntityFilter{})
	if err != nil {
		return names
	}
	for _, ent := range entities {
		if ent.Kind == library.KindArtist {
			names[ent.SourceID] = ent.DisplayName
		}
	}
	return names
}

func runReleasesRequeue(cmd *cobra.Command, args []string) error {
	return transitionRelease(args[0], "requeue")
}

func runReleasesSkip(cmd *cobra.Command, args []string) error {
	return transitionRelease(args[0], "skip")
}

// transitionRelease performs a guarded status move and reports what
// actually blocked it when the release sits at the wrong status.
func transitionRelease(arg, action string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid release ID: %s", arg)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	switch action {
	case "requeue":
		err = a.downloads.Requeue(id)
	case "skip":
		err = a.downloads.Skip(id)
	}
	if errors.Is(err, library.ErrNotFound) {
		return fmt.Errorf("release %d not found", id)
	}
	if errors.Is(err, library.ErrConstraint) {
		rel, getErr := a.lib.GetRelease(id)
		if getErr != nil {
			return err
		}
		if action == "requeue" {
			return fmt.Errorf("release %d is %s; only skipped releases can be requeued", id, rel.DownloadStatus)
		}
		return fmt.Errorf("release %d is %s; only pending or failed releases can be skipped", id, rel.DownloadStatus)
	}
	if err != nil {
		return err
	}

	rel, err := a.lib.GetRelease(id)
	if err != nil {
		return err
	}
	verb := "Requeued"
	if action == "skip" {
		verb = "Skipped"
	}
	fmt.Printf("%s: %s (%s)\n", verb, rel.Title, rel.DownloadStatus)
	return nil
}
