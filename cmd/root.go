package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mkravets/jcg/internal/config"
)

var (
	// DbPath is the fact database path, shared by every subcommand.
	DbPath string

	cfg *config.Config
)

// RegisterCommands loads the configuration and adds all subcommands to
// the root command. Flag defaults come from the config so that flags,
// .jcg.yaml and JCG_* environment variables layer in that order.
func RegisterCommands(rootCmd *cobra.Command) {
	var err error
	cfg, err = config.Load()
	if err != nil {
		// A broken config file should not brick the CLI; fall back to
		// defaults and let the user notice via the warning.
		rootCmd.PrintErrf("warning: %v, using defaults\n", err)
		cfg = &config.Config{}
	}
	if cfg.Database == "" {
		cfg.Database = ".jcg.db"
	}
	if cfg.Language == "" {
		cfg.Language = "auto"
	}

	rootCmd.PersistentFlags().StringVarP(&DbPath, "db", "d", cfg.Database, "fact database path")

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(stackCmd())
	rootCmd.AddCommand(upstreamCmd())
	rootCmd.AddCommand(downstreamCmd())
	rootCmd.AddCommand(impactCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(endpointsCmd())
	rootCmd.AddCommand(implementsCmd())
	rootCmd.AddCommand(riskCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(pushCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(mcpCmd())
}
