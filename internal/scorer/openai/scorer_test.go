package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/monitor"
)

func newChatServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		w.WriteHeader(status)
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestScore_ParsesNumericReply(t *testing.T) {
	t.Parallel()

	srv := newChatServer(t, "0.85", http.StatusOK)
	defer srv.Close()

	s := New(Config{Endpoint: srv.URL}, zap.NewNop())
	got, err := s.Score(context.Background(), monitor.ScoreRequest{
		Title:    "Looking for beta testers",
		Keywords: []string{"beta"},
	})

	require.NoError(t, err)
	require.InDelta(t, 0.85, got, 1e-9)
}

func TestScore_ClampsOutOfRangeNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reply string
		want  float64
	}{
		{"1.7", 1.0},
		{"-0.3", 0.0},
		{" 0.4\n", 0.4},
	}

	for _, tc := range tests {
		srv := newChatServer(t, tc.reply, http.StatusOK)
		s := New(Config{Endpoint: srv.URL}, zap.NewNop())

		got, err := s.Score(context.Background(), monitor.ScoreRequest{Title: "t"})
		srv.Close()

		require.NoError(t, err)
		require.InDelta(t, tc.want, got, 1e-9)
	}
}

func TestScore_NonNumericReplyIsAnError(t *testing.T) {
	t.Parallel()

	srv := newChatServer(t, "definitely relevant!", http.StatusOK)
	defer srv.Close()

	s := New(Config{Endpoint: srv.URL}, zap.NewNop())
	_, err := s.Score(context.Background(), monitor.ScoreRequest{Title: "t"})

	require.Error(t, err)
	require.Contains(t, err.Error(), "non-numeric")
}

func TestScore_UpstreamErrorIsAnError(t *testing.T) {
	t.Parallel()

	srv := newChatServer(t, "0.5", http.StatusTooManyRequests)
	defer srv.Close()

	s := New(Config{Endpoint: srv.URL}, zap.NewNop())
	_, err := s.Score(context.Background(), monitor.ScoreRequest{Title: "t"})

	require.Error(t, err)
}
