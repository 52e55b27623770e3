package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate statistics for the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			stats, err := appInstance.Store.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("query stats: %w", err)
			}

			cmd.Printf("total posts:       %d\n", stats.TotalPosts)
			cmd.Printf("relevant posts:    %d\n", stats.RelevantPosts)
			cmd.Printf("unique subreddits: %d\n", stats.UniqueSubreddits)
			cmd.Printf("monitoring runs:   %d\n", stats.MonitoringRuns)

			if len(stats.TopSubreddits) > 0 {
				cmd.Println("\ntop subreddits:")
				for _, sc := range stats.TopSubreddits {
					cmd.Printf("  r/%-20s %d\n", sc.Subreddit, sc.Posts)
				}
			}
			return nil
		},
	}
}
