package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/botherd/botherd/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"  _           _   _                   _\n" +
		" | |__   ___ | |_| |__   ___ _ __ __| |\n" +
		" | '_ \\ / _ \\| __| '_ \\ / _ \\ '__/ _` |\n" +
		" | |_) | (_) | |_| | | |  __/ | | (_| |\n" +
		" |_.__/ \\___/ \\__|_| |_|\\___|_|  \\__,_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "botherd",
	Short: "botherd - multi-agent chat bot supervisor",
	Long:  color.CyanString(logo) + "\nRuns a herd of chat agents across Signal and Slack groups.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(channelCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(consolidateCmd)
}
