package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/growthsignals/redditwatch/internal/monitor"
)

func TestMemory_CollectsPublishedMessages(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	post := monitor.Post{
		RedditID:  "abc123",
		Subreddit: "SaaS",
		Title:     "Looking for feedback",
		Permalink: "https://reddit.com/r/SaaS/comments/abc123",
	}

	require.NoError(t, m.PublishRelevant(context.Background(), post, 0.75))

	msgs := m.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "abc123", msgs[0].RedditID)
	require.Equal(t, "SaaS", msgs[0].Subreddit)
	require.InDelta(t, 0.75, msgs[0].RelevanceScore, 1e-9)
}

func TestNop_DiscardsEverything(t *testing.T) {
	t.Parallel()

	var n Nop
	require.NoError(t, n.PublishRelevant(context.Background(), monitor.Post{}, 1))
	require.NoError(t, n.Close())
}
