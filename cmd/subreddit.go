package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSubredditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subreddit <name>",
		Short: "Show a subreddit's about page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			info, err := appInstance.Source.AboutSubreddit(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("look up subreddit: %w", err)
			}

			created := time.Unix(int64(info.CreatedUTC), 0).UTC().Format("2006-01-02")
			cmd.Printf("r/%s\n", info.Name)
			cmd.Printf("  subscribers: %d\n", info.Subscribers)
			cmd.Printf("  type:        %s\n", info.Type)
			cmd.Printf("  created:     %s\n", created)
			if info.Description != "" {
				cmd.Printf("  %s\n", info.Description)
			}
			return nil
		},
	}
}
