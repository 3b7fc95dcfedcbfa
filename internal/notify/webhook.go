package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const webhookTimeout = 15 * time.Second

// Webhook posts messages as JSON to a configured URL.
type Webhook struct {
	url    string
	client *http.Client
	log    *slog.Logger
}

// NewWebhook creates a webhook notifier. A nil client gets a default
// with a request timeout.
func NewWebhook(url string, client *http.Client, logger *slog.Logger) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: webhookTimeout}
	}
	return &Webhook{
		url:    url,
		client: client,
		log:    logger.With("component", "notify"),
	}
}

// webhookPayload is the wire form of a message.
type webhookPayload struct {
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// Notify posts the message. Any non-2xx response is an error.
func (w *Webhook) Notify(ctx context.Context, m Message) error {
	body, err := json.Marshal(webhookPayload{
		Subject: m.Subject,
		Body:    m.Body,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %s", resp.Status)
	}

	w.log.Debug("notification delivered", "subject", m.Subject)
	return nil
}
