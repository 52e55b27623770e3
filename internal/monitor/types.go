package monitor

import "time"

// Post is one normalized submission fetched from a subreddit.
// Relevance fields stay nil until the post has been analyzed.
type Post struct {
	ID          int64   // internal database id, zero until stored
	RedditID    string  // stable external identifier, unique per platform
	Subreddit   string
	Title       string
	SelfText    string
	Author      string
	Score       int
	UpvoteRatio float64
	NumComments int
	CreatedUTC  float64 // epoch seconds as reported by the platform
	URL         string
	Permalink   string
	IsSelf      bool
	FetchedAt   time.Time

	IsRelevant     *bool
	RelevanceScore *float64
	KeywordsFound  []string
	ManuallyMarked bool
}

// Body returns the post's self text, treating a missing body as empty.
func (p Post) Body() string {
	return p.SelfText
}

// RunRecord summarizes one subreddit's outcome within a monitoring cycle.
// Records are append-only and never read back by the pipeline itself.
type RunRecord struct {
	CycleID   string
	Subreddit string
	Fetched   int
	Stored    int
	Relevant  int
	Duration  time.Duration
	Error     string
	RanAt     time.Time
}

// InsertOutcome reports the result of an idempotent post insert.
// A duplicate is a normal outcome, not an error.
type InsertOutcome struct {
	ID        int64
	Duplicate bool
}

// PostFilter narrows a stored-post query. Zero-valued fields mean
// "no constraint"; IsRelevant is a pointer so false can be filtered on.
type PostFilter struct {
	Subreddit  string
	IsRelevant *bool
	Limit      int
	MaxAgeDays int
}

// SubredditCount pairs a subreddit with its stored-post count.
type SubredditCount struct {
	Subreddit string
	Posts     int64
}

// Stats aggregates store-wide counters for the stats surface.
type Stats struct {
	TotalPosts       int64
	RelevantPosts    int64
	UniqueSubreddits int64
	MonitoringRuns   int64
	TopSubreddits    []SubredditCount
}

// Analysis is a free-form scoring record attached to a stored post.
type Analysis struct {
	PostID     int64
	Type       string
	Result     string
	Confidence float64
}

// Verdict is the relevance scorer's output for a single post.
// Secondary holds the raw model score when the secondary phase ran and
// succeeded; it stays nil on keyword-only verdicts and neutral fallbacks.
type Verdict struct {
	Relevant  bool
	Score     float64
	Matched   []string
	Secondary *float64
}

// Sort modes accepted by the source client.
const (
	SortNew           = "new"
	SortHot           = "hot"
	SortTop           = "top"
	SortRising        = "rising"
	SortControversial = "controversial"
)
