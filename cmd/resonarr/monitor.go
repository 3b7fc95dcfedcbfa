package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/resonarr/internal/library"
	"github.com/vmunix/resonarr/internal/reconcile"
	"github.com/vmunix/resonarr/internal/search"
	"github.com/vmunix/resonarr/pkg/catalog"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Manage monitored artists and playlists",
}

var monitorAddCmd = &cobra.Command{
	Use:   "add [name|url]",
	Short: "Start monitoring an artist or playlist",
	Long: `Adds an artist or playlist to the monitored set.

The argument is an artist name, resolved against the catalog, or a
catalog share URL. An exact name match wins; a single search hit is
accepted as-is; anything ambiguous lists the candidates and asks for
--source-id. Newly added entities are reconciled immediately so the
current discography lands as pending releases and the next scheduled
pass reports only genuinely new ones.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitorAdd,
}

var monitorRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Stop monitoring an entity",
	Long:  "Removes a monitored entity by row ID or catalog source ID. Discovered releases and history are kept.",
	Args:  cobra.ExactArgs(1),
	RunE:  runMonitorRemove,
}

var monitorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitored entities",
	RunE:  runMonitorList,
}

func init() {
	monitorAddCmd.Flags().String("source-id", "", "Catalog ID, bypassing name resolution")
	monitorAddCmd.Flags().Bool("playlist", false, "Treat the argument as a playlist ID")
	monitorAddCmd.Flags().String("file", "", "Bulk add entries from a file (one per line, # comments)")
	monitorAddCmd.Flags().Bool("skip-baseline", false, "Skip the immediate baseline reconciliation")

	monitorListCmd.Flags().StringP("kind", "k", "", "Filter by kind (artist, playlist)")

	monitorCmd.AddCommand(monitorAddCmd)
	monitorCmd.AddCommand(monitorRemoveCmd)
	monitorCmd.AddCommand(monitorListCmd)
	rootCmd.AddCommand(monitorCmd)
}

// addSpec is one add request after classification, before any catalog
// round trip.
type addSpec struct {
	kind     library.EntityKind
	sourceID string // set when the entry named an ID or URL
	name     string // set when the entry is a name to resolve
}

// classifyEntry decides what an add entry denotes: a catalog URL wins,
// then the playlist flag, then a plain artist name.
func classifyEntry(entry string, playlist bool) (addSpec, error) {
	if link, err := catalog.ParseLink(entry); err == nil {
		switch link.Kind {
		case catalog.LinkArtist:
			return addSpec{kind: library.KindArtist, sourceID: link.ID}, nil
		case catalog.LinkPlaylist:
			return addSpec{kind: library.KindPlaylist, sourceID: link.ID}, nil
		default:
			return addSpec{}, fmt.Errorf("cannot monitor a %s link; only artists and playlists", link.Kind)
		}
	}
	if playlist {
		return addSpec{kind: library.KindPlaylist, sourceID: entry}, nil
	}
	return addSpec{kind: library.KindArtist, name: entry}, nil
}

// readEntries parses a bulk add file: one entry per line, blank lines
// and # comment lines skipped.
func readEntries(r io.Reader) ([]string, error) {
	var entries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries, sc.Err()
}

// adder holds the wiring shared by one or many add operations.
type adder struct {
	app          *app
	cat          *catalog.Client
	resolver     *search.Resolver
	engine       *reconcile.Engine
	skipBaseline bool
}

func runMonitorAdd(cmd *cobra.Command, args []string) error {
	sourceID, _ := cmd.Flags().GetString("source-id")
	playlist, _ := cmd.Flags().GetBool("playlist")
	file, _ := cmd.Flags().GetString("file")
	skipBaseline, _ := cmd.Flags().GetBool("skip-baseline")

	if len(args) == 0 && sourceID == "" && file == "" {
		return errors.New("nothing to add: give a name or URL, --source-id, or --file")
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
	engine, err := a.newEngine(cat)
	if err != nil {
		return err
	}
	ad := &adder{
		app:          a,
		cat:          cat,
		resolver:     search.NewResolver(cat, a.log),
		engine:       engine,
		skipBaseline: skipBaseline,
	}

	ctx := cmd.Context()

	if file != "" {
		return ad.addFromFile(ctx, file, playlist)
	}
	if sourceID != "" {
		kind := library.KindArtist
		if playlist {
			kind = library.KindPlaylist
		}
		return ad.add(ctx, addSpec{kind: kind, sourceID: sourceID})
	}
	spec, err := classifyEntry(args[0], playlist)
	if err != nil {
		return err
	}
	return ad.add(ctx, spec)
}

func (ad *adder) addFromFile(ctx context.Context, path string, playlist bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := readEntries(f)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%s: no entries", path)
	}

	failed := 0
	for _, entry := range entries {
		spec, err := classifyEntry(entry, playlist)
		if err == nil {
			err = ad.add(ctx, spec)
		}
		if err != nil {
			failed++
			fmt.Printf("%s: %v\n", entry, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d entries failed", failed, len(entries))
	}
	return nil
}

func (ad *adder) add(ctx context.Context, spec addSpec) error {
	var ent *library.MonitoredEntity
	var err error
	switch {
	case spec.kind == library.KindPlaylist:
		ent, err = ad.addPlaylist(ctx, spec.sourceID)
	case spec.sourceID != "":
		ent, err = ad.addArtistByID(ctx, spec.sourceID)
	default:
		ent, err = ad.addArtistByName(ctx, spec.name)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Monitoring %s: %s (id %s)\n", ent.Kind, ent.DisplayName, ent.SourceID)

	if ad.skipBaseline {
		return nil
	}
	return ad.baseline(ctx, ent)
}

func (ad *adder) addArtistByID(ctx context.Context, id string) (*library.MonitoredEntity, error) {
	artist, err := ad.cat.Artist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("artist %s: %w", id, err)
	}
	return ad.insert(library.KindArtist, artist.ID, artist.Name)
}

func (ad *adder) addArtistByName(ctx context.Context, name string) (*library.MonitoredEntity, error) {
	match, candidates, err := ad.resolver.ResolveArtist(ctx, name)
	if errors.Is(err, search.ErrAmbiguous) {
		fmt.Printf("%q matched %d artists:\n\n", name, len(candidates))
		printCandidates(candidates)
		fmt.Println("\nRe-run with --source-id to pick one.")
		return nil, errors.New("ambiguous artist name")
	}
	if err != nil {
		return nil, err
	}
	return ad.insert(library.KindArtist, match.SourceID, match.Name)
}

func (ad *adder) addPlaylist(ctx context.Context, id string) (*library.MonitoredEntity, error) {
	pl, err := ad.cat.Playlist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("playlist %s: %w", id, err)
	}
	return ad.insert(library.KindPlaylist, pl.ID, pl.Title)
}

func (ad *adder) insert(kind library.EntityKind, sourceID, name string) (*library.MonitoredEntity, error) {
	ent := &library.MonitoredEntity{Kind: kind, SourceID: sourceID, DisplayName: name}
	if err := ad.app.lib.AddEntity(ent); err != nil {
		if errors.Is(err, library.ErrDuplicate) {
			return nil, fmt.Errorf("%s %q is already monitored", kind, name)
		}
		return nil, err
	}
	return ent, nil
}

// baseline reconciles just the added entity so its current catalog
// state lands as pending rows instead of as discoveries on the next
// scheduled pass.
func (ad *adder) baseline(ctx context.Context, ent *library.MonitoredEntity) error {
	rep, err := ad.engine.Reconcile(ctx, reconcile.Scope{EntityIDs: []int64{ent.ID}})
	if err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	if errs := rep.Errors(); len(errs) > 0 {
		return fmt.Errorf("baseline: %w", errs[0])
	}
	switch ent.Kind {
	case library.KindPlaylist:
		fmt.Printf("Baseline: %d tracks recorded.\n", rep.NewPlaylistTrackCount())
	default:
		fmt.Printf("Baseline: %d releases recorded as pending.\n", rep.NewReleaseCount())
	}
	return nil
}

func runMonitorRemove(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ent, err := findEntity(a.lib, args[0])
	if err != nil {
		return err
	}
	if err := a.lib.DeleteEntity(ent.ID); err != nil {
		return err
	}
	fmt.Printf("No longer monitoring %s: %s (id %s)\n", ent.Kind, ent.DisplayName, ent.SourceID)
	return nil
}

// findEntity accepts a numeric row ID first, then a catalog source ID
// of either kind.
func findEntity(lib *library.Store, ref string) (*library.MonitoredEntity, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if ent, err := lib.GetEntity(id); err == nil {
			return ent, nil
		}
	}
	for _, kind := range []library.EntityKind{library.KindArtist, library.KindPlaylist} {
		if ent, err := lib.GetEntityBySource(kind, ref); err == nil {
			return ent, nil
		}
	}
	return nil, fmt.Errorf("no monitored entity matches %q", ref)
}

// entityJSON is the --json shape for monitored entities.
type entityJSON struct {
	ID            int64      `json:"id"`
	Kind          string     `json:"kind"`
	SourceID      string     `json:"source_id"`
	DisplayName   string     `json:"display_name"`
	AddedAt       time.Time  `json:"added_at"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

func runMonitorList(cmd *cobra.Command, args []string) error {
	kindFlag, _ := cmd.Flags().GetString("kind")

	var filter library.EntityFilter
	if kindFlag != "" {
		kind, err := library.ParseEntityKind(kindFlag)
		if err != nil {
			return err
		}
		filter.Kind = &kind
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entities, total, err := a.lib.ListEntities(filter)
	if err != nil {
		return err
	}

	if jsonOutput {
		out := make([]entityJSON, 0, len(entities))
		for _, e := range entities {
			out = append(out, entityJSON{
				ID:            e.ID,
				Kind:          string(e.Kind),
				SourceID:      e.SourceID,
				DisplayName:   e.DisplayName,
				AddedAt:       e.AddedAt,
				LastCheckedAt: e.LastCheckedAt,
			})
		}
		printJSON(out)
		return nil
	}

	if len(entities) == 0 {
		fmt.Println("Nothing monitored yet. Try 'resonarr monitor add'.")
		return nil
	}

	fmt.Printf("Monitored (%d):\n\n", total)
	fmt.Printf("  %-4s %-9s %-38s %-22s %s\n", "ID", "KIND", "NAME", "SOURCE-ID", "LAST CHECKED")
	fmt.Println("  " + strings.Repeat("-", 88))
	for _, ent := range entities {
		checked := "never"
		if ent.LastCheckedAt != nil {
			checked = formatTimeAgo(*ent.LastCheckedAt)
		}
		fmt.Printf("  %-4d %-9s %-38s %-22s %s\n",
			ent.ID, ent.Kind, truncate(ent.DisplayName, 38), ent.SourceID, checked)
	}
	return nil
}

// truncate shortens s to fit an n-wide table column.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
