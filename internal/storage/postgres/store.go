// Package postgres provides the Postgres-backed implementation of the
// monitor.Store contract.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/monitor"
)

// pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Store persists posts, analyses and run records. Each operation is
// individually atomic; the scheduler's single-cycle guarantee keeps
// concurrent writers away, so no cross-operation transactions are needed.
type Store struct {
	pool   pool
	clock  monitor.Clock
	logger *zap.Logger
}

// New connects to Postgres and ensures the schema exists.
func New(ctx context.Context, cfg Config, clock monitor.Clock, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: p, clock: clock, logger: logger}
	if err := s.migrate(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing). No schema migration is attempted.
func NewWithPool(p pool, clock monitor.Clock, logger *zap.Logger) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p, clock: clock, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	s.logger.Info("database schema ready")
	return nil
}

// InsertPost stores a post keyed by its reddit_id. A second insert with the
// same reddit_id is a no-op reported as a Duplicate outcome, never an error.
func (s *Store) InsertPost(ctx context.Context, post monitor.Post) (monitor.InsertOutcome, error) {
	const query = `
INSERT INTO posts (
	reddit_id, subreddit, title, selftext, author,
	score, upvote_ratio, num_comments, created_utc,
	url, permalink, is_self
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (reddit_id) DO NOTHING
RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query,
		post.RedditID,
		post.Subreddit,
		post.Title,
		post.SelfText,
		post.Author,
		post.Score,
		post.UpvoteRatio,
		post.NumComments,
		post.CreatedUTC,
		post.URL,
		post.Permalink,
		post.IsSelf,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict target hit: the post already exists.
		return monitor.InsertOutcome{Duplicate: true}, nil
	}
	if err != nil {
		return monitor.InsertOutcome{}, fmt.Errorf("insert post %s: %w", post.RedditID, err)
	}
	return monitor.InsertOutcome{ID: id}, nil
}

// MarkRelevant records an automated scoring pass. Posts with a manual mark
// are skipped so operator decisions stay sticky.
func (s *Store) MarkRelevant(ctx context.Context, postID int64, relevant bool, score float64, keywords []string) error {
	var keywordsJSON any
	if len(keywords) > 0 {
		raw, err := json.Marshal(keywords)
		if err != nil {
			return fmt.Errorf("marshal keywords: %w", err)
		}
		keywordsJSON = raw
	}

	const query = `
UPDATE posts
SET is_relevant = $2, relevance_score = $3, keywords_found = $4
WHERE id = $1 AND NOT manually_marked`

	if _, err := s.pool.Exec(ctx, query, postID, relevant, score, keywordsJSON); err != nil {
		return fmt.Errorf("mark post %d relevant: %w", postID, err)
	}
	return nil
}

// MarkManual pins a manual relevance decision and clears any automated
// scoring provenance.
func (s *Store) MarkManual(ctx context.Context, postID int64, relevant bool) error {
	const query = `
UPDATE posts
SET is_relevant = $2, relevance_score = NULL, keywords_found = NULL, manually_marked = TRUE
WHERE id = $1`

	if _, err := s.pool.Exec(ctx, query, postID, relevant); err != nil {
		return fmt.Errorf("mark post %d manually: %w", postID, err)
	}
	return nil
}

// QueryPosts returns stored posts matching all supplied filters,
// newest-first by creation time.
func (s *Store) QueryPosts(ctx context.Context, filter monitor.PostFilter) ([]monitor.Post, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`
SELECT id, reddit_id, subreddit, title, selftext, author,
       score, upvote_ratio, num_comments, created_utc,
       url, permalink, is_self, fetched_at,
       is_relevant, relevance_score, keywords_found, manually_marked
FROM posts WHERE 1=1`)

	if filter.Subreddit != "" {
		args = append(args, filter.Subreddit)
		sb.WriteString(" AND subreddit = $" + strconv.Itoa(len(args)))
	}
	if filter.IsRelevant != nil {
		args = append(args, *filter.IsRelevant)
		sb.WriteString(" AND is_relevant = $" + strconv.Itoa(len(args)))
	}
	if filter.MaxAgeDays > 0 {
		cutoff := float64(s.clock.Now().AddDate(0, 0, -filter.MaxAgeDays).Unix())
		args = append(args, cutoff)
		sb.WriteString(" AND created_utc > $" + strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	sb.WriteString(" ORDER BY created_utc DESC LIMIT $" + strconv.Itoa(len(args)))

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []monitor.Post
	for rows.Next() {
		var (
			p           monitor.Post
			keywordsRaw []byte
		)
		if err := rows.Scan(
			&p.ID, &p.RedditID, &p.Subreddit, &p.Title, &p.SelfText, &p.Author,
			&p.Score, &p.UpvoteRatio, &p.NumComments, &p.CreatedUTC,
			&p.URL, &p.Permalink, &p.IsSelf, &p.FetchedAt,
			&p.IsRelevant, &p.RelevanceScore, &keywordsRaw, &p.ManuallyMarked,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		if len(keywordsRaw) > 0 {
			if err := json.Unmarshal(keywordsRaw, &p.KeywordsFound); err != nil {
				return nil, fmt.Errorf("decode keywords for post %d: %w", p.ID, err)
			}
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

// RecordRun appends one immutable run record.
func (s *Store) RecordRun(ctx context.Context, rec monitor.RunRecord) error {
	const query = `
INSERT INTO monitoring_runs (
	cycle_id, subreddit, posts_fetched, posts_stored,
	posts_relevant, run_duration_seconds, errors, run_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	var errText any
	if rec.Error != "" {
		errText = rec.Error
	}
	ranAt := rec.RanAt
	if ranAt.IsZero() {
		ranAt = s.clock.Now()
	}

	_, err := s.pool.Exec(ctx, query,
		rec.CycleID,
		rec.Subreddit,
		rec.Fetched,
		rec.Stored,
		rec.Relevant,
		rec.Duration.Seconds(),
		errText,
		ranAt,
	)
	if err != nil {
		return fmt.Errorf("record run for %s: %w", rec.Subreddit, err)
	}
	return nil
}

// SaveAnalysis attaches a free-form analysis record to a stored post.
func (s *Store) SaveAnalysis(ctx context.Context, a monitor.Analysis) error {
	const query = `
INSERT INTO analyses (post_id, analysis_type, analysis_result, confidence_score)
VALUES ($1,$2,$3,$4)`

	if _, err := s.pool.Exec(ctx, query, a.PostID, a.Type, a.Result, a.Confidence); err != nil {
		return fmt.Errorf("save analysis for post %d: %w", a.PostID, err)
	}
	return nil
}

// Stats returns aggregate counters across the whole store. Top subreddits
// break count ties by name ascending so the ordering is deterministic.
func (s *Store) Stats(ctx context.Context) (monitor.Stats, error) {
	var stats monitor.Stats

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM posts`, &stats.TotalPosts},
		{`SELECT COUNT(*) FROM posts WHERE is_relevant`, &stats.RelevantPosts},
		{`SELECT COUNT(DISTINCT subreddit) FROM posts`, &stats.UniqueSubreddits},
		{`SELECT COUNT(*) FROM monitoring_runs`, &stats.MonitoringRuns},
	}
	for _, c := range counts {
		if err := s.pool.QueryRow(ctx, c.query).Scan(c.dest); err != nil {
			return monitor.Stats{}, fmt.Errorf("stats count: %w", err)
		}
	}

	const topQuery = `
SELECT subreddit, COUNT(*) AS posts
FROM posts
GROUP BY subreddit
ORDER BY posts DESC, subreddit ASC
LIMIT 5`

	rows, err := s.pool.Query(ctx, topQuery)
	if err != nil {
		return monitor.Stats{}, fmt.Errorf("stats top subreddits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc monitor.SubredditCount
		if err := rows.Scan(&sc.Subreddit, &sc.Posts); err != nil {
			return monitor.Stats{}, fmt.Errorf("scan top subreddit: %w", err)
		}
		stats.TopSubreddits = append(stats.TopSubreddits, sc)
	}
	if err := rows.Err(); err != nil {
		return monitor.Stats{}, fmt.Errorf("iterate top subreddits: %w", err)
	}
	return stats, nil
}

// PurgeOlderThan deletes posts created before the retention cutoff and
// returns the number removed.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := float64(s.clock.Now().AddDate(0, 0, -days).Unix())

	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE created_utc < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge posts older than %d days: %w", days, err)
	}
	deleted := tag.RowsAffected()
	s.logger.Info("purged old posts", zap.Int("days", days), zap.Int64("deleted", deleted))
	return deleted, nil
}
