package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/analyzer"
	"github.com/growthsignals/redditwatch/internal/monitor"
)

type fakeClient struct {
	posts map[string][]monitor.Post
	errs  map[string]error
	calls []string
}

func (f *fakeClient) FetchPosts(_ context.Context, subreddit string, _ int, _ string) ([]monitor.Post, error) {
	f.calls = append(f.calls, subreddit)
	if err := f.errs[subreddit]; err != nil {
		return nil, err
	}
	return f.posts[subreddit], nil
}

type markCall struct {
	postID   int64
	relevant bool
	score    float64
	keywords []string
}

type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	seen       map[string]int64
	insertErrs map[string]error
	markErr    error
	recordErr  error
	marks      []markCall
	runs       []monitor.RunRecord
	analyses   []monitor.Analysis
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: map[string]int64{}, insertErrs: map[string]error{}}
}

func (f *fakeStore) InsertPost(_ context.Context, post monitor.Post) (monitor.InsertOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.insertErrs[post.RedditID]; err != nil {
		return monitor.InsertOutcome{}, err
	}
	if _, ok := f.seen[post.RedditID]; ok {
		return monitor.InsertOutcome{Duplicate: true}, nil
	}
	f.nextID++
	f.seen[post.RedditID] = f.nextID
	return monitor.InsertOutcome{ID: f.nextID}, nil
}

func (f *fakeStore) MarkRelevant(_ context.Context, postID int64, relevant bool, score float64, keywords []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.marks = append(f.marks, markCall{postID, relevant, score, keywords})
	return nil
}

func (f *fakeStore) MarkManual(context.Context, int64, bool) error { return nil }

func (f *fakeStore) QueryPosts(context.Context, monitor.PostFilter) ([]monitor.Post, error) {
	return nil, nil
}

func (f *fakeStore) RecordRun(_ context.Context, rec monitor.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.runs = append(f.runs, rec)
	return nil
}

func (f *fakeStore) SaveAnalysis(_ context.Context, a monitor.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses = append(f.analyses, a)
	return nil
}

func (f *fakeStore) Stats(context.Context) (monitor.Stats, error) { return monitor.Stats{}, nil }

func (f *fakeStore) PurgeOlderThan(context.Context, int) (int64, error) { return 0, nil }

func (f *fakeStore) Close() {}

type fakeNotifier struct {
	mu        sync.Mutex
	err       error
	published []string
}

func (f *fakeNotifier) PublishRelevant(_ context.Context, post monitor.Post, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, post.RedditID)
	return nil
}

func (f *fakeNotifier) Close() error { return nil }

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(100 * time.Millisecond)
	return c.now
}

func post(id, sub, title string) monitor.Post {
	return monitor.Post{RedditID: id, Subreddit: sub, Title: title, CreatedUTC: 1700000000}
}

func newRunner(client monitor.SourceClient, store monitor.Store, notifier monitor.Notifier, subs []string) *Runner {
	a := analyzer.New([]string{"feedback", "beta"}, nil, zap.NewNop())
	clock := &stubClock{now: time.Unix(1700000000, 0)}
	return New(client, store, a, notifier, clock, Config{Subreddits: subs}, zap.NewNop())
}

func TestRunCycle_StoresScoresAndRecords(t *testing.T) {
	t.Parallel()

	client := &fakeClient{posts: map[string][]monitor.Post{
		"SaaS": {
			post("p1", "SaaS", "Looking for feedback on my beta"),
			post("p2", "SaaS", "Weather today"),
		},
	}}
	store := newFakeStore()
	notifier := &fakeNotifier{}

	r := newRunner(client, store, notifier, []string{"SaaS"})
	r.RunCycle(context.Background())

	require.Len(t, store.runs, 1)
	rec := store.runs[0]
	require.Equal(t, "SaaS", rec.Subreddit)
	require.Equal(t, 2, rec.Fetched)
	require.Equal(t, 2, rec.Stored)
	require.Equal(t, 1, rec.Relevant)
	require.Empty(t, rec.Error)
	require.NotEmpty(t, rec.CycleID)
	require.Positive(t, rec.Duration)

	require.Len(t, store.marks, 1)
	require.True(t, store.marks[0].relevant)
	require.InDelta(t, 1.0, store.marks[0].score, 1e-9)
	require.Equal(t, []string{"feedback", "beta"}, store.marks[0].keywords)

	require.Equal(t, []string{"p1"}, notifier.published)
}

type fixedScorer struct{ score float64 }

func (s fixedScorer) Score(context.Context, monitor.ScoreRequest) (float64, error) {
	return s.score, nil
}

func TestRunCycle_SecondaryVerdictsGetAnalysisRecords(t *testing.T) {
	t.Parallel()

	client := &fakeClient{posts: map[string][]monitor.Post{
		"SaaS": {
			post("p1", "SaaS", "Looking for feedback on my beta"),
			post("p2", "SaaS", "Weather today"),
		},
	}}
	store := newFakeStore()

	a := analyzer.New([]string{"feedback", "beta"}, fixedScorer{score: 0.8}, zap.NewNop())
	clock := &stubClock{now: time.Unix(1700000000, 0)}
	r := New(client, store, a, nil, clock, Config{Subreddits: []string{"SaaS"}}, zap.NewNop())
	r.RunCycle(context.Background())

	// Only the relevant post gets a record, carrying the model's raw score.
	require.Len(t, store.analyses, 1)
	rec := store.analyses[0]
	require.Equal(t, store.seen["p1"], rec.PostID)
	require.Equal(t, "ai_relevance", rec.Type)
	require.InDelta(t, 0.8, rec.Confidence, 1e-9)
	require.Contains(t, rec.Result, "feedback,beta")
}

func TestRunCycle_DuplicatesAreNotRescored(t *testing.T) {
	t.Parallel()

	client := &fakeClient{posts: map[string][]monitor.Post{
		"SaaS": {post("p1", "SaaS", "feedback wanted")},
	}}
	store := newFakeStore()

	r := newRunner(client, store, nil, []string{"SaaS"})
	r.RunCycle(context.Background())
	r.RunCycle(context.Background())

	require.Len(t, store.seen, 1)
	require.Len(t, store.marks, 1, "duplicate ingest must not re-run the scorer")

	require.Len(t, store.runs, 2)
	require.Equal(t, 1, store.runs[0].Stored)
	require.Zero(t, store.runs[1].Stored)
	require.Equal(t, 1, store.runs[1].Fetched)
}

func TestRunCycle_FetchFailureIsIsolatedPerSource(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		posts: map[string][]monitor.Post{
			"startup": {post("p9", "startup", "beta invites")},
		},
		errs: map[string]error{
			"gone": monitor.ErrSourceNotFound,
		},
	}
	store := newFakeStore()

	r := newRunner(client, store, nil, []string{"gone", "startup"})
	r.RunCycle(context.Background())

	// The failed source still produced a run record, and the next source ran.
	require.Equal(t, []string{"gone", "startup"}, client.calls)
	require.Len(t, store.runs, 2)

	failed := store.runs[0]
	require.Equal(t, "gone", failed.Subreddit)
	require.Zero(t, failed.Fetched)
	require.Zero(t, failed.Stored)
	require.Zero(t, failed.Relevant)
	require.Contains(t, failed.Error, "source not found")

	require.Equal(t, 1, store.runs[1].Stored)
}

func TestRunCycle_InsertFailureCountsAsNotStored(t *testing.T) {
	t.Parallel()

	client := &fakeClient{posts: map[string][]monitor.Post{
		"SaaS": {
			post("bad", "SaaS", "feedback one"),
			post("good", "SaaS", "feedback two"),
		},
	}}
	store := newFakeStore()
	store.insertErrs["bad"] = errors.New("disk full")

	r := newRunner(client, store, nil, []string{"SaaS"})
	r.RunCycle(context.Background())

	require.Len(t, store.runs, 1)
	require.Equal(t, 2, store.runs[0].Fetched)
	require.Equal(t, 1, store.runs[0].Stored)
	require.Equal(t, 1, store.runs[0].Relevant)
}

func TestRunCycle_ObservabilityFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	client := &fakeClient{posts: map[string][]monitor.Post{
		"SaaS": {post("p1", "SaaS", "feedback wanted")},
	}}
	store := newFakeStore()
	store.markErr = errors.New("update failed")
	store.recordErr = errors.New("insert failed")
	notifier := &fakeNotifier{err: errors.New("pubsub down")}

	r := newRunner(client, store, notifier, []string{"SaaS"})

	require.NotPanics(t, func() { r.RunCycle(context.Background()) })
	require.Equal(t, int64(1), store.seen["p1"], "pipeline progress survives observability failures")
}

func TestRunCycle_RunsEverySourceEvenWhenContextIsCanceled(t *testing.T) {
	t.Parallel()

	client := &fakeClient{posts: map[string][]monitor.Post{
		"one":   {post("p1", "one", "feedback wanted")},
		"two":   {post("p2", "two", "beta invites")},
		"three": {post("p3", "three", "Weather today")},
	}}
	store := newFakeStore()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A started cycle finishes naturally: every source is visited and gets
	// its run record, canceled context or not.
	r := newRunner(client, store, nil, []string{"one", "two", "three"})
	r.RunCycle(ctx)

	require.Equal(t, []string{"one", "two", "three"}, client.calls)
	require.Len(t, store.runs, 3)
	for i, sub := range []string{"one", "two", "three"} {
		require.Equal(t, sub, store.runs[i].Subreddit)
		require.Equal(t, 1, store.runs[i].Fetched)
	}
}
