// Package analyzer scores posts against a configured keyword set,
// optionally blending in a secondary model-based scorer.
package analyzer

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/monitor"
)

// bodyPrefixLen bounds how much of a post body is handed to the
// secondary scorer.
const bodyPrefixLen = 500

// neutralScore substitutes for a failed secondary scoring call.
const neutralScore = 0.5

// Analyzer computes a relevance verdict per post. The keyword phase is a
// pure substring match; the secondary phase only runs on posts the keyword
// phase already marked relevant.
type Analyzer struct {
	keywords  []string
	secondary monitor.SecondaryScorer
	logger    *zap.Logger
}

// New constructs an Analyzer. Keywords are matched case-insensitively;
// secondary may be nil to disable the blending phase.
func New(keywords []string, secondary monitor.SecondaryScorer, logger *zap.Logger) *Analyzer {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Analyzer{
		keywords:  lowered,
		secondary: secondary,
		logger:    logger,
	}
}

// Evaluate scores a single post. The verdict's Matched list preserves the
// configured keyword order, not the order of occurrence in the text.
func (a *Analyzer) Evaluate(ctx context.Context, post monitor.Post) monitor.Verdict {
	verdict := a.keywordMatch(post)

	if a.secondary != nil && verdict.Relevant {
		secondary, ok := a.secondaryScore(ctx, post)
		verdict.Score = (verdict.Score + secondary) / 2
		if ok {
			verdict.Secondary = &secondary
		}
	}

	return verdict
}

func (a *Analyzer) keywordMatch(post monitor.Post) monitor.Verdict {
	text := strings.ToLower(post.Title + " " + post.Body())

	var matched []string
	for _, keyword := range a.keywords {
		if strings.Contains(text, keyword) {
			matched = append(matched, keyword)
		}
	}

	if len(matched) == 0 {
		return monitor.Verdict{Relevant: false, Score: 0, Matched: nil}
	}

	score := float64(len(matched)) / float64(max(len(a.keywords), 1))
	if score > 1.0 {
		score = 1.0
	}
	return monitor.Verdict{Relevant: true, Score: score, Matched: matched}
}

// secondaryScore runs the secondary scorer, falling back to a neutral
// score on any failure so the keyword verdict is never lost. The boolean
// reports whether the returned score came from the scorer itself.
func (a *Analyzer) secondaryScore(ctx context.Context, post monitor.Post) (float64, bool) {
	req := monitor.ScoreRequest{
		Title:      post.Title,
		BodyPrefix: bodyPrefix(post.Body()),
		Keywords:   a.keywords,
	}
	score, err := a.secondary.Score(ctx, req)
	if err != nil {
		a.logger.Warn("secondary scoring failed, using neutral fallback",
			zap.String("reddit_id", post.RedditID),
			zap.Error(err))
		return neutralScore, false
	}
	return score, true
}

// bodyPrefix bounds the body to its first bodyPrefixLen characters. The cut
// is made on runes so a multi-byte character is never split.
func bodyPrefix(body string) string {
	if utf8.RuneCountInString(body) <= bodyPrefixLen {
		return body
	}
	runes := []rune(body)
	return string(runes[:bodyPrefixLen])
}
