package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var insightDays int

// insightsCmd represents the insights command
var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show daily account insights",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInsights(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)

	insightsCmd.Flags().IntVar(&insightDays, "days", 30, "number of days to show")
}

func runInsights(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now().UTC()
	end := now.Format("2006-01-02")
	start := now.AddDate(0, 0, -insightDays).Format("2006-01-02")

	docs, err := a.store.AccountInsightRange(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to read account insights: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("No account insights in store. Run 'igdash sync' first.")
		return nil
	}

	fmt.Printf("%-12s %10s %12s %8s\n", "Date", "Followers", "Impressions", "Reach")
	for _, doc := range docs {
		fmt.Printf("%-12s %10s %12s %8s\n", doc.Date,
			fmtCount(doc.FollowerCount), fmtCount(doc.Impressions), fmtCount(doc.Reach))
	}
	return nil
}

func fmtCount(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
