package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Verify the Reddit connection and configured subreddits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			identity, err := appInstance.Source.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("verify reddit connection: %w", err)
			}
			created := time.Unix(int64(identity.CreatedUTC), 0).UTC().Format("2006-01-02")
			cmd.Printf("authenticated as u/%s (link karma %d, comment karma %d, since %s)\n",
				identity.Username, identity.LinkKarma, identity.CommentKarma, created)

			for _, name := range appInstance.Config.Monitor.Subreddits {
				info, err := appInstance.Source.AboutSubreddit(cmd.Context(), name)
				if err != nil {
					cmd.Printf("r/%-20s UNREACHABLE: %v\n", name, err)
					continue
				}
				cmd.Printf("r/%-20s %d subscribers (%s)\n", info.Name, info.Subscribers, info.Type)
			}
			return nil
		},
	}
}
