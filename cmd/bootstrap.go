package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibecoding/mcp-server/internal/progress"
	"github.com/vibecoding/mcp-server/internal/schema"
)

var (
	bootstrapDays  int
	bootstrapLimit int
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Fill the vector index from the configured sources",
	Long: `Aggregates historical context from all configured sources and indexes
it into the local vector database, so the first queries do not start
from an empty index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := buildServices()
		if err != nil {
			return err
		}
		defer svcs.Close()

		days := bootstrapDays
		if days <= 0 {
			days = svcs.cfg.Index.BootstrapDaysBack
		}
		limit := bootstrapLimit
		if limit <= 0 {
			limit = svcs.cfg.Index.BootstrapLimit
		}

		ctx := context.Background()
		resp, err := svcs.aggregator.GetContext(ctx, &schema.ContextRequest{
			TimeRange: map[string]any{"days_back": days},
			Limit:     limit,
		})
		if err != nil {
			return fmt.Errorf("aggregating context: %w", err)
		}
		if len(resp.ContextItems) == 0 {
			fmt.Println("No context items found. Are the source credentials configured?")
			return nil
		}

		// Index one item at a time so the bar tracks real work.
		reporter := progress.NewReporter()
		reporter.Start(len(resp.ContextItems))
		var chunks int
		for i, item := range resp.ContextItems {
			n, err := svcs.pipeline.AddItems(ctx, []schema.ContextItem{item})
			if err != nil {
				return fmt.Errorf("indexing item %d: %w", i+1, err)
			}
			chunks += n
			reporter.Update(i+1, fmt.Sprintf("Indexing %s items", item.Source))
		}
		reporter.Finish()

		fmt.Printf("Indexed %d chunks from %d items (%d days back)\n", chunks, len(resp.ContextItems), days)
		return nil
	},
}

func init() {
	bootstrapCmd.Flags().IntVar(&bootstrapDays, "days", 0, "lookback window in days (default from config)")
	bootstrapCmd.Flags().IntVar(&bootstrapLimit, "limit", 0, "maximum items per source batch (default from config)")
	rootCmd.AddCommand(bootstrapCmd)
}
