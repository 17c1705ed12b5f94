package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igdash/pkg/syncer"
)

var (
	fullSync bool
	deepSync bool
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync account metrics from the Graph API into the local store",
	Long: `Sync account metrics into the local store.

The default quick sync costs a single API call and refreshes the profile
counters. A full sync additionally walks recent posts with their per-media
insights, the last week of account insights and the audience breakdowns.`,
	Example: `  # Quick profile refresh (1 API call)
  igdash sync

  # Full sync over recent posts
  igdash sync --full

  # Full sync over a deeper post history
  igdash sync --full --deep`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().BoolVar(&fullSync, "full", false, "sync posts, insights and demographics, not just the profile")
	syncCmd.Flags().BoolVar(&deepSync, "deep", false, "with --full, fetch a deeper post history")
}

func runSync(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !fullSync {
		result, err := a.syncer.QuickSync(ctx)
		if err != nil {
			return fmt.Errorf("quick sync failed: %w", err)
		}
		fmt.Printf("Synced @%s: %d followers, %d posts (%d API call)\n",
			result.Profile.Username, result.Profile.FollowersCount,
			result.Profile.MediaCount, result.CallsUsed)
		return nil
	}

	result, err := a.syncer.FullSync(ctx, syncer.FullSyncOptions{
		Deep: deepSync,
		OnProgress: func(status string) {
			fmt.Fprintf(os.Stderr, "\r\033[K%s", status)
		},
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("full sync failed: %w", err)
	}

	fmt.Printf("Synced @%s: %d followers, %d posts processed (%d API calls)\n",
		result.Profile.Username, result.Profile.FollowersCount,
		result.PostsProcessed, result.CallsUsed)

	remaining, err := a.client.CallsRemaining()
	if err == nil {
		fmt.Printf("API budget remaining this hour: %d\n", remaining)
	}
	return nil
}
