// Package pubsub implements the Notifier boundary on Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/monitor"
	"github.com/growthsignals/redditwatch/internal/notify"
)

// Publisher publishes relevant-post messages to a Pub/Sub topic.
// Publishing is fire-and-forget: the client batches and retries in the
// background and the monitoring cycle never blocks on delivery.
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// New creates a Pub/Sub client and verifies the topic exists. It
// authenticates with Application Default Credentials.
func New(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("close pubsub client after topic check failure", zap.Error(cerr))
		}
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("close pubsub client after missing topic", zap.Error(cerr))
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// PublishRelevant sends the relevant-post payload without waiting for the
// server acknowledgment.
func (p *Publisher) PublishRelevant(ctx context.Context, post monitor.Post, score float64) error {
	data, err := json.Marshal(notify.NewRelevantMessage(post, score))
	if err != nil {
		return fmt.Errorf("marshal relevant message: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"subreddit": post.Subreddit,
		},
	})
	_ = result // fire-and-forget; the client retries in the background

	return nil
}

// Close flushes pending messages and releases the client.
func (p *Publisher) Close() error {
	p.topic.Stop()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
