package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newMarkCmd() *cobra.Command {
	var irrelevant bool

	cmd := &cobra.Command{
		Use:   "mark <post-id>",
		Short: "Manually pin a relevance decision on a stored post",
		Long: `Manually mark a stored post as relevant (or, with --irrelevant, as not
relevant). Manual marks are sticky: later automated scoring passes leave
the post untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			postID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid post id %q", args[0])
			}

			if err := appInstance.Store.MarkManual(cmd.Context(), postID, !irrelevant); err != nil {
				return fmt.Errorf("mark post %d: %w", postID, err)
			}

			verdict := "relevant"
			if irrelevant {
				verdict = "not relevant"
			}
			cmd.Printf("post %d manually marked %s\n", postID, verdict)
			return nil
		},
	}

	cmd.Flags().BoolVar(&irrelevant, "irrelevant", false, "mark the post as not relevant")

	return cmd
}
