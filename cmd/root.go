// Package cmd holds the vibemcp CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vibemcp",
	Short: "Sales context aggregation and semantic retrieval server",
	Long: `vibemcp aggregates sales context from Gmail, Zoom, Notion and
Salesforce, indexes it into a local vector database, and serves it over
HTTP and the Model Context Protocol for AI agents.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".vibemcp.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
