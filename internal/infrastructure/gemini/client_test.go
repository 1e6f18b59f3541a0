package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/snacksmith/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{APIKey: "test-key", BaseURL: baseURL, Timeout: time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, slog.Default())

	assert.Equal(t, DefaultBaseURL+"/models/"+DefaultModel+":generateContent", c.endpoint)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
}

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "suggest a snack", req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Try "},{"text":"almonds.\n"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	reply, err := newTestClient(server.URL).Generate(context.Background(), "suggest a snack")

	require.NoError(t, err)
	assert.Equal(t, "Try almonds.", reply)
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error", http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid"}}`, "API key not valid"},
		{"plain error body", http.StatusInternalServerError, "boom", "boom"},
		{"invalid json", http.StatusOK, "not json", "failed to decode response"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "no candidates"},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`, "SAFETY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			reply, err := newTestClient(server.URL).Generate(context.Background(), "hi")

			assert.Empty(t, reply)
			assert.ErrorIs(t, err, domain.ErrAIFailure)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGenerate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient("http://127.0.0.1:1").Generate(ctx, "hi")

	assert.ErrorIs(t, err, domain.ErrAIFailure)
}
