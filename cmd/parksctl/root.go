package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "parksctl",
		Short:         "Collect, import and maintain the trampoline park directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.rulesFile, "rules", "", "Rental keyword rules file (TOML), overrides RULES_FILE")
	rootCmd.PersistentFlags().StringVar(&flags.metroFile, "metro", "", "Metro table overrides (TOML), overrides METRO_FILE")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level, overrides LOG_LEVEL")

	rootCmd.AddCommand(newCollectCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newImportCSVCommand(ctx))
	rootCmd.AddCommand(newRemoveCommand(ctx))
	rootCmd.AddCommand(newReclassifyCommand(ctx))
	rootCmd.AddCommand(newStatsCommand(ctx))
	for _, cmd := range newMediaCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newTokenCommand(ctx))

	return rootCmd
}
