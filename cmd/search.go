package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		subreddit string
		limit     int
		sort      string
		store     bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search Reddit for posts matching a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			query := args[0]

			posts, err := appInstance.Source.SearchPosts(cmd.Context(), query, subreddit, limit, sort)
			if err != nil {
				return fmt.Errorf("search %q: %w", query, err)
			}

			stored := 0
			for _, p := range posts {
				if store {
					outcome, err := appInstance.Store.InsertPost(cmd.Context(), p)
					if err != nil {
						return fmt.Errorf("store post %s: %w", p.RedditID, err)
					}
					if !outcome.Duplicate {
						stored++
					}
				}
				printPost(cmd, p)
			}

			cmd.Printf("\n%d results for %q", len(posts), query)
			if store {
				cmd.Printf(", %d newly stored", stored)
			}
			cmd.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&subreddit, "subreddit", "r", "", "restrict the search to one subreddit")
	cmd.Flags().IntVarP(&limit, "limit", "l", 25, "maximum number of results")
	cmd.Flags().StringVarP(&sort, "sort", "s", "relevance", "sort order (relevance, new, top, comments)")
	cmd.Flags().BoolVar(&store, "store", false, "also persist the matching posts")

	return cmd
}
