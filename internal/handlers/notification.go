// internal/handlers/notification.go
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vmunix/resonarr/internal/events"
	"github.com/vmunix/resonarr/internal/notify"
	"github.com/vmunix/resonarr/pkg/catalog"
)

// downloadFlushAfter is how long the handler waits after the first
// buffered download outcome before sending one batched summary.
const downloadFlushAfter = 30 * time.Second

// NotificationHandler batches events into operator notifications: one
// message per reconcile pass listing what was discovered, and one
// message per download batch summarizing outcomes. Delivery failures
// are logged and the batch is dropped; notifications are best-effort.
type NotificationHandler struct {
	bus        *events.Bus
	logger     *slog.Logger
	notifier   notify.Notifier
	flushAfter time.Duration

	discovered []*events.ReleaseDiscovered
	playlists  []*events.PlaylistTracksDiscovered
	completed  []*events.DownloadCompleted
	failed     []*events.DownloadFailed
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(bus *events.Bus, notifier notify.Notifier, logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		bus:        bus,
		logger:     logger.With("handler", "notification"),
		notifier:   notifier,
		flushAfter: downloadFlushAfter,
	}
}

// Name returns the handler name.
func (h *NotificationHandler) Name() string {
	return "notification"
}

// Start begins processing events.
func (h *NotificationHandler) Start(ctx context.Context) error {
	releases := h.bus.Subscribe(events.EventReleaseDiscovered, 100)
	playlists := h.bus.Subscribe(events.EventPlaylistTracksDiscovered, 100)
	reconciles := h.bus.Subscribe(events.EventReconcileCompleted, 10)
	completions := h.bus.Subscribe(events.EventDownloadCompleted, 100)
	failures := h.bus.Subscribe(events.EventDownloadFailed, 100)

	flush := time.NewTimer(h.flushAfter)
	if !flush.Stop() {
		<-flush.C
	}
	defer flush.Stop()

	for {
		select {
		case e := <-releases:
			if e == nil {
				return nil // Channel closed
			}
			h.discovered = append(h.discovered, e.(*events.ReleaseDiscovered))
		case e := <-playlists:
			if e == nil {
				return nil
			}
			h.playlists = append(h.playlists, e.(*events.PlaylistTracksDiscovered))
		case e := <-reconciles:
			if e == nil {
				return nil
			}
			// Everything published before the completion is already
			// buffered; drain it so the summary is whole even when
			// select served this channel first.
			h.drainDiscoveries(releases, playlists)
			h.notifyDiscoveries(ctx, e.(*events.ReconcileCompleted))
		case e := <-completions:
			if e == nil {
				return nil
			}
			if len(h.completed)+len(h.failed) == 0 {
				flush.Reset(h.flushAfter)
			}
			h.completed = append(h.completed, e.(*events.DownloadCompleted))
		case e := <-failures:
			if e == nil {
				return nil
			}
			if len(h.completed)+len(h.failed) == 0 {
				flush.Reset(h.flushAfter)
			}
			h.failed = append(h.failed, e.(*events.DownloadFailed))
		case <-flush.C:
			h.drainDownloads(completions, failures)
			h.notifyDownloads(ctx)
		case <-ctx.Done():
			// Deliver whatever is still buffered before shutting down.
			h.drainDownloads(completions, failures)
			grace, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			h.notifyDownloads(grace)
			cancel()
			return ctx.Err()
		}
	}
}

func (h *NotificationHandler) drainDiscoveries(releases, playlists <-chan events.Event) {
	for {
		select {
		case e := <-releases:
			if e == nil {
				return
			}
			h.discovered = append(h.discovered, e.(*events.ReleaseDiscovered))
		case e := <-playlists:
			if e == nil {
				return
			}
			h.playlists = append(h.playlists, e.(*events.PlaylistTracksDiscovered))
		default:
			return
		}
	}
}

func (h *NotificationHandler) drainDownloads(completions, failures <-chan events.Event) {
	for {
		select {
		case e := <-completions:
			if e == nil {
				return
			}
			h.completed = append(h.completed, e.(*events.DownloadCompleted))
		case e := <-failures:
			if e == nil {
				return
			}
			h.failed = append(h.failed, e.(*events.DownloadFailed))
		default:
			return
		}
	}
}

// notifyDiscoveries sends one message summarizing a reconcile pass.
// Passes that found nothing stay silent.
func (h *NotificationHandler) notifyDiscoveries(ctx context.Context, rec *events.ReconcileCompleted) {
	if len(h.discovered)+len(h.playlists) == 0 {
		return
	}

	var b strings.Builder
	if len(h.discovered) > 0 {
		fmt.Fprintf(&b, "NEW RELEASES (%d):\n\n", len(h.discovered))
		for _, r := range h.discovered {
			fmt.Fprintf(&b, "  %s - %s\n", r.ArtistName, r.Title)
			date := r.ReleaseDate
			if date == "" {
				date = "?"
			}
			fmt.Fprintf(&b, "    %s | %s\n", r.RecordType, date)
			fmt.Fprintf(&b, "    %s\n\n", catalog.FormatLink(catalog.LinkAlbum, r.EntityID()))
		}
	}
	if len(h.playlists) > 0 {
		b.WriteString("NEW PLAYLIST TRACKS:\n\n")
		for _, p := range h.playlists {
			fmt.Fprintf(&b, "  %s: %d new track(s)\n", p.PlaylistTitle, len(p.TrackIDs))
		}
		b.WriteString("\n")
	}
	if rec.Errors > 0 {
		fmt.Fprintf(&b, "%d entity fetch error(s) during this pass.\n", rec.Errors)
	}

	msg := notify.Message{
		Subject: fmt.Sprintf("resonarr: %d new release(s) discovered", len(h.discovered)),
		Body:    strings.TrimRight(b.String(), "\n"),
	}
	if len(h.discovered) == 0 {
		msg.Subject = "resonarr: new playlist tracks discovered"
	}

	if err := h.notifier.Notify(ctx, msg); err != nil {
		h.logger.Error("failed to send discovery notification", "error", err)
	}
	h.discovered = nil
	h.playlists = nil
}

// notifyDownloads sends one message summarizing the buffered download
// outcomes.
func (h *NotificationHandler) notifyDownloads(ctx context.Context) {
	if len(h.completed)+len(h.failed) == 0 {
		return
	}

	var b strings.Builder
	if len(h.completed) > 0 {
		fmt.Fprintf(&b, "COMPLETED (%d):\n", len(h.completed))
		for _, c := range h.completed {
			fmt.Fprintf(&b, "  %s: %d track(s)\n", c.Title, c.Tracks)
		}
		b.WriteString("\n")
	}
	if len(h.failed) > 0 {
		fmt.Fprintf(&b, "FAILED (%d):\n", len(h.failed))
		for _, f := range h.failed {
			fmt.Fprintf(&b, "  %s: %s\n", f.Title, f.Reason)
		}
	}

	var parts []string
	if len(h.completed) > 0 {
		parts = append(parts, fmt.Sprintf("%d download(s) completed", len(h.completed)))
	}
	if len(h.failed) > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", len(h.failed)))
	}

	msg := notify.Message{
		Subject: "resonarr: " + strings.Join(parts, ", "),
		Body:    strings.TrimRight(b.String(), "\n"),
	}
	if err := h.notifier.Notify(ctx, msg); err != nil {
		h.logger.Error("failed to send download notification", "error", err)
	}
	h.completed = nil
	h.failed = nil
}
