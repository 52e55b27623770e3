// Package notify provides Notifier implementations for announcing newly
// relevant posts to downstream consumers.
package notify

import (
	"context"
	"sync"

	"github.com/growthsignals/redditwatch/internal/monitor"
)

// RelevantMessage is the wire payload published for a relevant post.
type RelevantMessage struct {
	RedditID       string  `json:"reddit_id"`
	Subreddit      string  `json:"subreddit"`
	Title          string  `json:"title"`
	Permalink      string  `json:"permalink"`
	RelevanceScore float64 `json:"relevance_score"`
}

// NewRelevantMessage builds the payload for a post and its blended score.
func NewRelevantMessage(post monitor.Post, score float64) RelevantMessage {
	return RelevantMessage{
		RedditID:       post.RedditID,
		Subreddit:      post.Subreddit,
		Title:          post.Title,
		Permalink:      post.Permalink,
		RelevanceScore: score,
	}
}

// Nop is a Notifier that discards everything.
type Nop struct{}

// PublishRelevant does nothing.
func (Nop) PublishRelevant(context.Context, monitor.Post, float64) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// Memory collects published messages in memory, for tests and local runs.
type Memory struct {
	mu       sync.Mutex
	messages []RelevantMessage
}

// NewMemory constructs an empty Memory notifier.
func NewMemory() *Memory {
	return &Memory{}
}

// PublishRelevant appends the message.
func (m *Memory) PublishRelevant(_ context.Context, post monitor.Post, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, NewRelevantMessage(post, score))
	return nil
}

// Messages returns a copy of everything published so far.
func (m *Memory) Messages() []RelevantMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RelevantMessage(nil), m.messages...)
}

// Close does nothing.
func (m *Memory) Close() error { return nil }
