package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vinehill",
	Short: "Vinehill - media catalog bot for Telegram channels",
	Long: `Vinehill watches a private intake chat for uploaded media, gives each file
a canonical branded name and category, and keeps one directory message per
category channel up to date with retrieval links. Files are only handed out
to users who belong to every required group.

Catalog activity can optionally be journaled to Redis and inspected with
'vinehill history' and 'vinehill watch'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	// Unknown flags on the root command are an error, not silently ignored
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command. Called once by main.main().
func Execute() error {
	// Errors are printed by the printer package; cobra stays quiet
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "vinehill.yml", "Path to the configuration file")
}
