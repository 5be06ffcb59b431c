// Package app provides the commands of the pinstate CLI.
package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:               "pinstate",
	DisableAutoGenTag: true,
	Short:             "Marker state coordinator",
	Long: `pinstate coordinates the hover, click, spiderfy and popover state of a
cluster of map markers. The replay command drives it from a scripted
sequence of interactions and journals every visual transition.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "pinstate", Version)
	},
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().String("config-dir", ".", "Directory containing "+configFileName())
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
	if err := viper.BindPFlag("logLevel", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		slog.Error("Error binding log-level flag", "error", err)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newOverlapCmd())

	return rootCmd
}
