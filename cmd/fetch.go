package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/growthsignals/redditwatch/internal/monitor"
)

func newFetchCmd() *cobra.Command {
	var (
		limit  int
		sort   string
		store  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <subreddit>",
		Short: "Fetch the latest posts from one subreddit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			subreddit := args[0]

			posts, err := appInstance.Source.FetchPosts(cmd.Context(), subreddit, limit, sort)
			if err != nil {
				return fmt.Errorf("fetch r/%s: %w", subreddit, err)
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
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(posts)
			}

			for _, p := range posts {
				printPost(cmd, p)
			}
			cmd.Printf("\n%d posts fetched from r/%s", len(posts), subreddit)
			if store {
				cmd.Printf(", %d newly stored", stored)
			}
			cmd.Println()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 25, "maximum number of posts")
	cmd.Flags().StringVarP(&sort, "sort", "s", "new", "sort order (new, hot, top, rising, controversial)")
	cmd.Flags().BoolVar(&store, "store", false, "also persist the fetched posts")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print posts as JSON")

	return cmd
}

func printPost(cmd *cobra.Command, p monitor.Post) {
	created := time.Unix(int64(p.CreatedUTC), 0).UTC().Format("2006-01-02 15:04")
	cmd.Printf("[%s] %s\n", p.RedditID, p.Title)
	cmd.Printf("    r/%s · u/%s · score %d · %d comments · %s\n",
		p.Subreddit, p.Author, p.Score, p.NumComments, created)
	if p.RelevanceScore != nil {
		cmd.Printf("    relevance %.2f", *p.RelevanceScore)
		if len(p.KeywordsFound) > 0 {
			cmd.Printf(" (%v)", p.KeywordsFound)
		}
		cmd.Println()
	}
	cmd.Printf("    %s\n", p.Permalink)
}
