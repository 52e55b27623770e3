// Package monitor defines the domain types and contracts shared by the
// monitoring pipeline. Interfaces live with the consumer so providers
// (Postgres, Reddit, Pub/Sub) can be swapped or faked in tests.
package monitor

import (
	"context"
	"errors"
	"time"
)

// Failure kinds a source client must make distinguishable from generic
// transient errors. Both are handled identically by the runner; the
// distinction is informational.
var (
	ErrSourceNotFound = errors.New("source not found")
	ErrAccessDenied   = errors.New("source access denied")
)

// SourceClient fetches normalized posts from the remote platform.
type SourceClient interface {
	// FetchPosts returns up to limit posts from the named subreddit in the
	// platform's order for the given sort mode.
	FetchPosts(ctx context.Context, subreddit string, limit int, sort string) ([]Post, error)
}

// Store is the durable, deduplicated persistence layer. It owns the schema
// and all per-operation atomicity guarantees.
type Store interface {
	// InsertPost stores a post keyed by its external identifier. Re-inserting
	// a known identifier yields a Duplicate outcome and mutates nothing.
	InsertPost(ctx context.Context, post Post) (InsertOutcome, error)

	// MarkRelevant sets the relevance annotation for an automated scoring
	// pass. Posts carrying a manual mark are left untouched.
	MarkRelevant(ctx context.Context, postID int64, relevant bool, score float64, keywords []string) error

	// MarkManual pins a manual relevance decision, clearing any automated
	// scoring provenance.
	MarkManual(ctx context.Context, postID int64, relevant bool) error

	// QueryPosts returns stored posts matching all supplied filters,
	// newest-first by creation time.
	QueryPosts(ctx context.Context, filter PostFilter) ([]Post, error)

	// RecordRun appends one immutable run record.
	RecordRun(ctx context.Context, rec RunRecord) error

	// SaveAnalysis attaches a free-form analysis record to a stored post.
	SaveAnalysis(ctx context.Context, a Analysis) error

	// Stats returns aggregate counters across the whole store.
	Stats(ctx context.Context) (Stats, error)

	// PurgeOlderThan deletes posts older than the given number of days and
	// reports how many were removed.
	PurgeOlderThan(ctx context.Context, days int) (int64, error)

	Close()
}

// SecondaryScorer is the optional higher-cost scoring capability blended
// with the keyword score. Implementations must return a value in [0,1].
type SecondaryScorer interface {
	Score(ctx context.Context, req ScoreRequest) (float64, error)
}

// ScoreRequest carries the bounded context handed to a secondary scorer.
type ScoreRequest struct {
	Title      string
	BodyPrefix string
	Keywords   []string
}

// Notifier publishes newly relevant posts to downstream consumers.
type Notifier interface {
	PublishRelevant(ctx context.Context, post Post, score float64) error
	Close() error
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}
