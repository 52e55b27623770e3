// Package runner executes one monitoring cycle: fetch each configured
// subreddit, ingest and deduplicate posts, score new posts, and record
// per-source run statistics.
package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/analyzer"
	"github.com/growthsignals/redditwatch/internal/metrics"
	"github.com/growthsignals/redditwatch/internal/monitor"
)

// Config controls cycle behavior.
type Config struct {
	Subreddits []string
	PageSize   int
	Sort       string
}

// Runner orchestrates one pass over all configured subreddits. It holds no
// state across cycles beyond its configuration and collaborators.
type Runner struct {
	client   monitor.SourceClient
	store    monitor.Store
	analyzer *analyzer.Analyzer
	notifier monitor.Notifier
	clock    monitor.Clock
	logger   *zap.Logger
	cfg      Config
}

// New constructs a Runner. notifier may be nil when no downstream
// notification is configured.
func New(
	client monitor.SourceClient,
	store monitor.Store,
	a *analyzer.Analyzer,
	notifier monitor.Notifier,
	clock monitor.Clock,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 25
	}
	if cfg.Sort == "" {
		cfg.Sort = monitor.SortNew
	}
	return &Runner{
		client:   client,
		store:    store,
		analyzer: a,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
	}
}

// RunCycle processes every configured subreddit strictly sequentially.
// A failure in one subreddit never blocks the rest. A started cycle always
// runs to completion: abandoning mid-cycle work would leave sources with no
// run record and stored posts unscored, so there is no mid-cycle
// cancellation path.
func (r *Runner) RunCycle(ctx context.Context) {
	cycleID := uuid.NewString()
	start := r.clock.Now()
	r.logger.Info("starting monitoring cycle",
		zap.String("cycle_id", cycleID),
		zap.Int("subreddits", len(r.cfg.Subreddits)))

	for _, subreddit := range r.cfg.Subreddits {
		r.monitorSubreddit(ctx, cycleID, subreddit)
	}

	elapsed := r.clock.Now().Sub(start)
	metrics.ObserveCycle(elapsed.Seconds())
	r.logger.Info("monitoring cycle complete",
		zap.String("cycle_id", cycleID),
		zap.Duration("duration", elapsed))
}

// monitorSubreddit walks the fetch -> ingest -> score -> record steps for a
// single subreddit. Every failure is contained at this boundary.
func (r *Runner) monitorSubreddit(ctx context.Context, cycleID, subreddit string) {
	log := r.logger.With(zap.String("cycle_id", cycleID), zap.String("subreddit", subreddit))
	log.Info("monitoring subreddit")

	start := r.clock.Now()

	posts, err := r.client.FetchPosts(ctx, subreddit, r.cfg.PageSize, r.cfg.Sort)
	if err != nil {
		log.Error("fetch failed", zap.Error(err))
		metrics.ObserveSourceError(subreddit)
		r.recordRun(ctx, monitor.RunRecord{
			CycleID:   cycleID,
			Subreddit: subreddit,
			Duration:  r.clock.Now().Sub(start),
			Error:     err.Error(),
		}, log)
		return
	}

	var stored, relevant int
	for _, post := range posts {
		outcome, err := r.store.InsertPost(ctx, post)
		if err != nil {
			// Counted as not stored; the rest of the batch still runs.
			log.Error("insert failed", zap.String("reddit_id", post.RedditID), zap.Error(err))
			continue
		}
		if outcome.Duplicate {
			continue
		}
		stored++

		verdict := r.analyzer.Evaluate(ctx, post)
		if !verdict.Relevant {
			continue
		}
		relevant++
		log.Info("relevant post found",
			zap.String("title", truncate(post.Title, 50)),
			zap.Float64("score", verdict.Score))

		if err := r.store.MarkRelevant(ctx, outcome.ID, true, verdict.Score, verdict.Matched); err != nil {
			log.Error("mark relevant failed", zap.Int64("post_id", outcome.ID), zap.Error(err))
		}
		r.saveAnalysis(ctx, outcome.ID, verdict, log)
		r.notifyRelevant(ctx, post, verdict.Score, log)
	}

	metrics.ObserveSourceRun(subreddit, len(posts), stored, relevant)
	r.recordRun(ctx, monitor.RunRecord{
		CycleID:   cycleID,
		Subreddit: subreddit,
		Fetched:   len(posts),
		Stored:    stored,
		Relevant:  relevant,
		Duration:  r.clock.Now().Sub(start),
	}, log)

	log.Info("subreddit done",
		zap.Int("fetched", len(posts)),
		zap.Int("stored", stored),
		zap.Int("relevant", relevant))
}

// recordRun writes run statistics. Observability failures are logged and
// swallowed so they never break the pipeline they observe.
func (r *Runner) recordRun(ctx context.Context, rec monitor.RunRecord, log *zap.Logger) {
	if err := r.store.RecordRun(ctx, rec); err != nil {
		log.Error("record run failed", zap.Error(err))
	}
}

// saveAnalysis records the model's own score when the secondary phase
// contributed to the verdict. Failures are logged and swallowed.
func (r *Runner) saveAnalysis(ctx context.Context, postID int64, verdict monitor.Verdict, log *zap.Logger) {
	if verdict.Secondary == nil {
		return
	}
	rec := monitor.Analysis{
		PostID:     postID,
		Type:       "ai_relevance",
		Result:     fmt.Sprintf("blended %.2f, matched %s", verdict.Score, strings.Join(verdict.Matched, ",")),
		Confidence: *verdict.Secondary,
	}
	if err := r.store.SaveAnalysis(ctx, rec); err != nil {
		log.Error("save analysis failed", zap.Int64("post_id", postID), zap.Error(err))
	}
}

func (r *Runner) notifyRelevant(ctx context.Context, post monitor.Post, score float64, log *zap.Logger) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.PublishRelevant(ctx, post, score); err != nil {
		log.Error("notify relevant failed", zap.String("reddit_id", post.RedditID), zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
