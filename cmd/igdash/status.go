package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"igdash/pkg/auth"
)

var statusRecords int

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the account, store and API budget status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVar(&statusRecords, "records", 5, "number of recent sync records to show")
}

func runStatus(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.store.Config(ctx)
	if err != nil {
		return fmt.Errorf("failed to read account config: %w", err)
	}
	if cfg == nil {
		fmt.Println("No account configured. Run 'igdash token set' then 'igdash sync'.")
		return nil
	}

	fmt.Println("Account")
	if cfg.IGUsername != "" {
		fmt.Printf("  Username:       @%s (%s)\n", cfg.IGUsername, cfg.IGUserID)
	}
	if cfg.AccessToken != "" {
		fmt.Printf("  Access token:   %s\n", auth.MaskToken(cfg.AccessToken))
	}
	if !cfg.TokenExpiresAt.IsZero() {
		fmt.Printf("  Token expires:  %s\n", cfg.TokenExpiresAt.Format("2006-01-02 15:04 MST"))
	}
	if !cfg.LastSyncAt.IsZero() {
		fmt.Printf("  Last sync:      %s (%s)\n", cfg.LastSyncAt.Format("2006-01-02 15:04 MST"), cfg.LastSyncStatus)
	}

	remaining, err := a.client.CallsRemaining()
	if err == nil {
		fmt.Printf("\nAPI budget remaining this hour: %d\n", remaining)
	}

	count, err := a.store.PostCount(ctx)
	if err == nil {
		fmt.Printf("Posts in store: %d\n", count)
	}

	if latest, err := a.store.LatestAccountInsight(ctx); err == nil {
		fmt.Printf("Latest account insight: %s", latest.Date)
		if latest.FollowerCount != nil {
			fmt.Printf(" (%d followers)", *latest.FollowerCount)
		}
		fmt.Println()
	}

	records, err := a.store.RecentSyncRecords(ctx, statusRecords)
	if err != nil {
		return fmt.Errorf("failed to read sync history: %w", err)
	}
	if len(records) > 0 {
		fmt.Println("\nRecent syncs")
		for _, rec := range records {
			line := fmt.Sprintf("  %s  %-7s  %d calls", rec.Timestamp.Format("2006-01-02 15:04"), rec.Status, rec.APICallsUsed)
			if rec.PostsProcessed > 0 {
				line += fmt.Sprintf(", %d posts", rec.PostsProcessed)
			}
			if rec.ErrorMessage != "" {
				line += "  " + rec.ErrorMessage
			}
			fmt.Println(line)
		}
	}
	return nil
}
