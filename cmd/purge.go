package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete stored posts older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			if days <= 0 {
				days = appInstance.Config.Retention.Days
			}

			removed, err := appInstance.Store.PurgeOlderThan(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("purge posts: %w", err)
			}

			cmd.Printf("removed %d posts older than %d days\n", removed, days)
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 0, "retention window in days (defaults to retention.days)")

	return cmd
}
