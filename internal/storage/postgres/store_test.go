package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/monitor"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

var testNow = time.Unix(1700000000, 0).UTC()

func newTestStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock, fakeClock{now: testNow}, zap.NewNop())
	require.NoError(t, err)
	return store, mock
}

func samplePost() monitor.Post {
	return monitor.Post{
		RedditID:    "abc123",
		Subreddit:   "SaaS",
		Title:       "Looking for feedback on my beta",
		SelfText:    "We just launched",
		Author:      "builder42",
		Score:       17,
		UpvoteRatio: 0.93,
		NumComments: 4,
		CreatedUTC:  1699990000,
		URL:         "https://example.com/launch",
		Permalink:   "https://reddit.com/r/SaaS/comments/abc123",
		IsSelf:      true,
	}
}

func TestInsertPost_StoresNewPost(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)
	post := samplePost()

	mock.ExpectQuery("INSERT INTO posts").
		WithArgs(
			post.RedditID, post.Subreddit, post.Title, post.SelfText, post.Author,
			post.Score, post.UpvoteRatio, post.NumComments, post.CreatedUTC,
			post.URL, post.Permalink, post.IsSelf,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	outcome, err := store.InsertPost(context.Background(), post)
	require.NoError(t, err)
	require.False(t, outcome.Duplicate)
	require.Equal(t, int64(42), outcome.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPost_DuplicateIsNotAnError(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)
	post := samplePost()

	// ON CONFLICT DO NOTHING returns no row for an existing reddit_id.
	mock.ExpectQuery("INSERT INTO posts").
		WithArgs(
			post.RedditID, post.Subreddit, post.Title, post.SelfText, post.Author,
			post.Score, post.UpvoteRatio, post.NumComments, post.CreatedUTC,
			post.URL, post.Permalink, post.IsSelf,
		).
		WillReturnError(pgx.ErrNoRows)

	outcome, err := store.InsertPost(context.Background(), post)
	require.NoError(t, err)
	require.True(t, outcome.Duplicate)
	require.Zero(t, outcome.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPost_OtherFailuresSurface(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)
	post := samplePost()

	mock.ExpectQuery("INSERT INTO posts").
		WithArgs(
			post.RedditID, post.Subreddit, post.Title, post.SelfText, post.Author,
			post.Score, post.UpvoteRatio, post.NumComments, post.CreatedUTC,
			post.URL, post.Permalink, post.IsSelf,
		).
		WillReturnError(errors.New("connection reset"))

	_, err := store.InsertPost(context.Background(), post)
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert post abc123")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRelevant_SkipsManuallyMarkedRows(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND NOT manually_marked")).
		WithArgs(int64(7), true, 0.5, []byte(`["feedback","beta"]`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.MarkRelevant(context.Background(), 7, true, 0.5, []string{"feedback", "beta"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRelevant_EmptyKeywordsStoredAsNull(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	mock.ExpectExec("UPDATE posts").
		WithArgs(int64(7), false, 0.0, nil).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.MarkRelevant(context.Background(), 7, false, 0, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkManual_ClearsAutomatedProvenance(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	mock.ExpectExec(regexp.QuoteMeta("manually_marked = TRUE")).
		WithArgs(int64(9), true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.MarkManual(context.Background(), 9, true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func postRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "reddit_id", "subreddit", "title", "selftext", "author",
		"score", "upvote_ratio", "num_comments", "created_utc",
		"url", "permalink", "is_self", "fetched_at",
		"is_relevant", "relevance_score", "keywords_found", "manually_marked",
	})
}

func TestQueryPosts_AppliesAllFiltersConjunctively(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	relevant := true
	score := 0.5
	cutoff := float64(testNow.AddDate(0, 0, -7).Unix())

	rows := postRows().AddRow(
		int64(1), "abc123", "SaaS", "Need feedback", "body", "builder42",
		10, 0.9, 3, float64(1699990000),
		"https://example.com", "https://reddit.com/x", true, testNow,
		&relevant, &score, []byte(`["feedback"]`), false,
	)

	mock.ExpectQuery(regexp.QuoteMeta("AND subreddit = $1 AND is_relevant = $2 AND created_utc > $3")).
		WithArgs("SaaS", true, cutoff, 20).
		WillReturnRows(rows)

	got, err := store.QueryPosts(context.Background(), monitor.PostFilter{
		Subreddit:  "SaaS",
		IsRelevant: &relevant,
		Limit:      20,
		MaxAgeDays: 7,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "abc123", got[0].RedditID)
	require.NotNil(t, got[0].IsRelevant)
	require.True(t, *got[0].IsRelevant)
	require.Equal(t, []string{"feedback"}, got[0].KeywordsFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryPosts_NoFiltersUsesDefaultLimit(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	mock.ExpectQuery("FROM posts WHERE 1=1").
		WithArgs(50).
		WillReturnRows(postRows())

	got, err := store.QueryPosts(context.Background(), monitor.PostFilter{})
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRun_InsertsImmutableRecord(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	mock.ExpectExec("INSERT INTO monitoring_runs").
		WithArgs("cycle-1", "SaaS", 25, 3, 2, 1.5, nil, testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.RecordRun(context.Background(), monitor.RunRecord{
		CycleID:   "cycle-1",
		Subreddit: "SaaS",
		Fetched:   25,
		Stored:    3,
		Relevant:  2,
		Duration:  1500 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRun_CapturesErrorText(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	mock.ExpectExec("INSERT INTO monitoring_runs").
		WithArgs("cycle-1", "gone", 0, 0, 0, 0.0, "source not found", testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.RecordRun(context.Background(), monitor.RunRecord{
		CycleID:   "cycle-1",
		Subreddit: "gone",
		Error:     "source not found",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAnalysis_InsertsRecord(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	mock.ExpectExec("INSERT INTO analyses").
		WithArgs(int64(5), "keyword", `{"matched":["beta"]}`, 0.5).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.SaveAnalysis(context.Background(), monitor.Analysis{
		PostID:     5,
		Type:       "keyword",
		Result:     `{"matched":["beta"]}`,
		Confidence: 0.5,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_AggregatesCounters(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM posts")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(10)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM posts WHERE is_relevant")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT subreddit) FROM posts")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM monitoring_runs")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(6)))
	mock.ExpectQuery("GROUP BY subreddit").
		WillReturnRows(pgxmock.NewRows([]string{"subreddit", "posts"}).
			AddRow("SaaS", int64(7)).
			AddRow("startup", int64(3)))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(10), stats.TotalPosts)
	require.Equal(t, int64(4), stats.RelevantPosts)
	require.Equal(t, int64(2), stats.UniqueSubreddits)
	require.Equal(t, int64(6), stats.MonitoringRuns)
	require.Equal(t, []monitor.SubredditCount{
		{Subreddit: "SaaS", Posts: 7},
		{Subreddit: "startup", Posts: 3},
	}, stats.TopSubreddits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeOlderThan_ReportsDeletedCount(t *testing.T) {
	t.Parallel()

	store, mock := newTestStore(t)

	cutoff := float64(testNow.AddDate(0, 0, -30).Unix())
	mock.ExpectExec("DELETE FROM posts").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 12))

	deleted, err := store.PurgeOlderThan(context.Background(), 30)
	require.NoError(t, err)
	require.Equal(t, int64(12), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}
