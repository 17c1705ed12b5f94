package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"igdash/pkg/models"
)

var (
	postsTop   string
	postsLimit int
)

// postsCmd represents the posts command
var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List synced posts",
	Long: `List posts from the local store, newest first, or ranked by a metric
with --top (likes, comments, reach, impressions, saves, shares, plays,
engagement, engagementRate).`,
	Example: `  # Newest posts
  igdash posts

  # Ten best-reaching posts
  igdash posts --top reach --limit 10`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPosts(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(postsCmd)

	postsCmd.Flags().StringVar(&postsTop, "top", "", "rank by metric instead of recency")
	postsCmd.Flags().IntVarP(&postsLimit, "limit", "n", 10, "maximum number of posts to show")
}

func runPosts(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var posts []models.Post
	if postsTop != "" {
		posts, err = a.store.TopPosts(ctx, postsTop, postsLimit)
	} else {
		posts, err = a.store.Posts(ctx)
		if err == nil && postsLimit > 0 && len(posts) > postsLimit {
			posts = posts[:postsLimit]
		}
	}
	if err != nil {
		return fmt.Errorf("failed to read posts: %w", err)
	}
	if len(posts) == 0 {
		fmt.Println("No posts in store. Run 'igdash sync --full' first.")
		return nil
	}

	for _, p := range posts {
		date := p.Timestamp
		if len(date) >= 10 {
			date = date[:10]
		}
		line := fmt.Sprintf("%s  %-14s  %6d likes  %5d comments", date, p.MediaType, p.Likes, p.Comments)
		if p.Reach != nil {
			line += fmt.Sprintf("  %7d reach", *p.Reach)
		}
		if p.EngagementRate != nil {
			line += fmt.Sprintf("  %5.1f%% eng", *p.EngagementRate*100)
		}
		fmt.Println(line)
		if caption := firstLine(p.Caption); caption != "" {
			fmt.Printf("    %s\n", caption)
		}
	}
	return nil
}

// firstLine truncates a caption to one short display line.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 70 {
		s = s[:67] + "..."
	}
	return s
}
