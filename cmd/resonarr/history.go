package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/resonarr/internal/events"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the persisted event history",
	Long: `Reads the append-only event log: discoveries, download outcomes,
status changes, and reconcile summaries.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("since", "", "Window, e.g. 24h or 30m (default: most recent events)")
	historyCmd.Flags().StringP("type", "t", "", "Filter by event type, e.g. release.discovered")
	historyCmd.Flags().IntP("limit", "n", 20, "Number of events to show")

	rootCmd.AddCommand(historyCmd)
}

// eventJSON is the --json shape for logged events.
type eventJSON struct {
	ID         int64           `json:"id"`
	EventType  string          `json:"event_type"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	sinceFlag, _ := cmd.Flags().GetString("since")
	typeFlag, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var evts []events.RawEvent
	if sinceFlag != "" {
		d, err := time.ParseDuration(sinceFlag)
		if err != nil {
			return fmt.Errorf("invalid --since %q: %w", sinceFlag, err)
		}
		evts, err = a.eventLog.Since(time.Now().Add(-d))
		if err != nil {
			return err
		}
		reverseEvents(evts)
	} else {
		// The log has no type-filtered query, so a type filter
		// oversamples the recent window before trimming.
		fetch := limit
		if typeFlag != "" {
			fetch = 500
		}
		evts, _, err = a.eventLog.Recent(fetch, 0)
		if err != nil {
			return err
		}
	}

	if typeFlag != "" {
		evts = filterEventType(evts, typeFlag)
	}
	if len(evts) > limit {
		evts = evts[:limit]
	}

	if jsonOutput {
		out := make([]eventJSON, 0, len(evts))
		for _, e := range evts {
			out = append(out, eventJSON{
				ID:         e.ID,
				EventType:  e.EventType,
				EntityType: e.EntityType,
				EntityID:   e.EntityID,
				Payload:    json.RawMessage(e.Payload),
				OccurredAt: e.OccurredAt,
			})
		}
		printJSON(out)
		return nil
	}

	if len(evts) == 0 {
		fmt.Println("No events")
		return nil
	}

	fmt.Printf("Events (%d):\n\n", len(evts))
	fmt.Printf("  %-12s %-28s %s\n", "TIME", "TYPE", "ENTITY")
	fmt.Println("  " + strings.Repeat("-", 60))
	for _, e := range evts {
		entity := fmt.Sprintf("%s/%s", e.EntityType, e.EntityID)
		fmt.Printf("  %-12s %-28s %s\n", formatTimeAgo(e.OccurredAt), e.EventType, entity)
	}
	return nil
}

// reverseEvents flips Since's oldest-first order so every history view
// reads newest first.
func reverseEvents(evts []events.RawEvent) {
	for i, j := 0, len(evts)-1; i < j; i, j = i+1, j-1 {
		evts[i], evts[j] = evts[j], evts[i]
	}
}

func filterEventType(evts []events.RawEvent, eventType string) []events.RawEvent {
	out := evts[:0]
	for _, e := range evts {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	ago := time.Since(t)
	switch {
	case ago < time.Minute:
		return "just now"
	case ago < time.Hour:
		mins := int(ago.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case ago < 24*time.Hour:
		hours := int(ago.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	default:
		days := int(ago.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
