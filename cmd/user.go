package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user <username>",
		Short: "Show a Reddit user's public profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			profile, err := appInstance.Source.AboutUser(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("look up user: %w", err)
			}

			created := time.Unix(int64(profile.CreatedUTC), 0).UTC()
			ageDays := int(time.Since(created).Hours() / 24)

			cmd.Printf("u/%s\n", profile.Username)
			cmd.Printf("  link karma:    %d\n", profile.LinkKarma)
			cmd.Printf("  comment karma: %d\n", profile.CommentKarma)
			cmd.Printf("  account age:   %d days\n", ageDays)
			if profile.IsGold {
				cmd.Println("  gold member")
			}
			return nil
		},
	}
}
