package postgres

// schema is applied statement by statement at startup. Every statement is
// idempotent so repeated boots are safe.
//
// The four indexes cover the access patterns exercised by the rest of the
// store: lookup by external id, by subreddit, by relevance flag, and by
// creation time.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		reddit_id TEXT UNIQUE NOT NULL,
		subreddit TEXT NOT NULL,
		title TEXT NOT NULL,
		selftext TEXT NOT NULL DEFAULT '',
		author TEXT,
		score INTEGER NOT NULL DEFAULT 0,
		upvote_ratio DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		num_comments INTEGER NOT NULL DEFAULT 0,
		created_utc DOUBLE PRECISION NOT NULL,
		url TEXT,
		permalink TEXT,
		is_self BOOLEAN NOT NULL DEFAULT TRUE,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_relevant BOOLEAN,
		relevance_score DOUBLE PRECISION,
		keywords_found JSONB,
		manually_marked BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id BIGSERIAL PRIMARY KEY,
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		analysis_type TEXT,
		analysis_result TEXT,
		confidence_score DOUBLE PRECISION,
		analyzed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS monitoring_runs (
		id BIGSERIAL PRIMARY KEY,
		cycle_id TEXT,
		subreddit TEXT NOT NULL,
		posts_fetched INTEGER NOT NULL DEFAULT 0,
		posts_stored INTEGER NOT NULL DEFAULT 0,
		posts_relevant INTEGER NOT NULL DEFAULT 0,
		run_duration_seconds DOUBLE PRECISION,
		errors TEXT,
		run_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_subreddit ON posts(subreddit)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_is_relevant ON posts(is_relevant)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created_utc ON posts(created_utc)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_subreddit ON monitoring_runs(subreddit)`,
}
