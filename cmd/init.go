package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibecoding/mcp-server/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize vibemcp configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure vibemcp and writes a .vibemcp.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.RunWizard()
		if err != nil {
			return err
		}
		if err := cfg.Save(cfgFile); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", cfgFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
