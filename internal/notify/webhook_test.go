package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhook_Notify(t *testing.T) {
	var got webhookPayload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, srv.Client(), testLogger())
	err := wh.Notify(context.Background(), Message{
		Subject: "3 new releases",
		Body:    "Artist X - Album Y",
	})
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "3 new releases", got.Subject)
	assert.Equal(t, "Artist X - Album Y", got.Body)
	assert.False(t, got.SentAt.IsZero())
}

func TestWebhook_Notify_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, srv.Client(), testLogger())
	err := wh.Notify(context.Background(), Message{Subject: "s", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhook_Notify_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	wh := NewWebhook(srv.URL, nil, testLogger())
	err := wh.Notify(context.Background(), Message{Subject: "s", Body: "b"})
	require.Error(t, err)
}
