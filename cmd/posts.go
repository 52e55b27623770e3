package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/growthsignals/redditwatch/internal/monitor"
)

func newPostsCmd() *cobra.Command {
	var (
		subreddit    string
		relevantOnly bool
		limit        int
		days         int
	)

	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List stored posts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			filter := monitor.PostFilter{
				Subreddit:  subreddit,
				Limit:      limit,
				MaxAgeDays: days,
			}
			if relevantOnly {
				relevant := true
				filter.IsRelevant = &relevant
			}

			posts, err := appInstance.Store.QueryPosts(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("query posts: %w", err)
			}
			if len(posts) == 0 {
				cmd.Println("no posts match the given filters")
				return nil
			}

			for _, p := range posts {
				printPost(cmd, p)
			}
			cmd.Printf("\n%d posts\n", len(posts))
			return nil
		},
	}

	cmd.Flags().StringVarP(&subreddit, "subreddit", "r", "", "only posts from this subreddit")
	cmd.Flags().BoolVar(&relevantOnly, "relevant", false, "only posts marked relevant")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of posts")
	cmd.Flags().IntVarP(&days, "days", "d", 7, "only posts created within the last N days")

	return cmd
}
