package reddit

import (
	"time"

	"go.uber.org/zap"

	"github.com/growthsignals/redditwatch/internal/monitor"
)

// listingEnvelope mirrors Reddit's listing wire shape: a kind/data wrapper
// around a list of children, each wrapping a submission.
type listingEnvelope struct {
	Data struct {
		Children []struct {
			Data submission `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type submission struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	IsSelf      bool    `json:"is_self"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
}

// normalize converts a listing into monitor.Posts in the order Reddit
// reported them. subredditHint overrides the per-item subreddit when the
// caller already knows the source (listings for a single subreddit).
func (l listingEnvelope) normalize(subredditHint string, logger *zap.Logger) []monitor.Post {
	posts := make([]monitor.Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		sub := child.Data
		if sub.ID == "" {
			logger.Warn("skipping listing child without id")
			continue
		}
		subreddit := subredditHint
		if subreddit == "" {
			subreddit = sub.Subreddit
		}
		author := sub.Author
		if author == "" {
			author = "[deleted]"
		}
		posts = append(posts, monitor.Post{
			RedditID:    sub.ID,
			Subreddit:   subreddit,
			Title:       sub.Title,
			SelfText:    sub.SelfText,
			Author:      author,
			Score:       sub.Score,
			UpvoteRatio: sub.UpvoteRatio,
			NumComments: sub.NumComments,
			CreatedUTC:  sub.CreatedUTC,
			URL:         sub.URL,
			Permalink:   "https://reddit.com" + sub.Permalink,
			IsSelf:      sub.IsSelf,
			FetchedAt:   time.Now().UTC(),
		})
	}
	return posts
}
