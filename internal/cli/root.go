// Package cli wires the service together and exposes its commands: the
// ops server and the batch jobs that work the outreach funnel.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

// SetVersionInfo sets the version injected via ldflags.
func SetVersionInfo(version string) {
	appVersion = version
}

var rootCmd = &cobra.Command{
	Use:   "fern",
	Short: "LinkedIn outreach funnel automation",
	Long: `Fern moves prospect profiles through a staged outreach funnel:
scraping their recent posts, liking fresh content, generating and
posting researched comments, and parking exhausted profiles for
maintenance. Each stage runs as a batch command; the serve command
exposes health and stats endpoints.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fern %s\n", appVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
