// internal/handlers/eventlog.go

// Package handlers contains the daemon's long-running event consumers.
// Each handler subscribes to the bus in Start and runs until the
// context ends or the bus closes.
package handlers

import (
	"context"
	"log/slog"

	"github.com/vmunix/resonarr/internal/events"
)

// EventLogHandler persists every published event to the append-only
// event log. The daemon runs persistence as a handler so the bus stays
// a pure delivery mechanism there; one-shot CLI runs attach the log to
// the bus directly instead.
type EventLogHandler struct {
	bus    *events.Bus
	log    *events.EventLog
	logger *slog.Logger
}

// NewEventLogHandler creates an event log handler.
func NewEventLogHandler(bus *events.Bus, log *events.EventLog, logger *slog.Logger) *EventLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLogHandler{
		bus:    bus,
		log:    log,
		logger: logger.With("handler", "eventlog"),
	}
}

// Name returns the handler name.
func (h *EventLogHandler) Name() string {
	return "eventlog"
}

// Start consumes the firehose until the context ends or the bus closes.
func (h *EventLogHandler) Start(ctx context.Context) error {
	all := h.bus.SubscribeAll(256)

	for {
		select {
		case e := <-all:
			if e == nil {
				return nil // Bus closed
			}
			if _, err := h.log.Append(e); err != nil {
				h.logger.Error("failed to persist event",
					"type", e.EventType(),
					"entity_id", e.EntityID(),
					"error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
