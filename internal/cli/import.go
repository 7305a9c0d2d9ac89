package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/models"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import profiles from CSV exports",
}

var importProspectsCmd = &cobra.Command{
	Use:   "prospects <file>",
	Short: "Import prospect profiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		result, err := app.Importer.Import(cmd.Context(), f, models.ConnectionStatusProspect)
		if err != nil {
			return err
		}
		return printReport(result)
	},
}

var importConnectionsCmd = &cobra.Command{
	Use:   "connections <file>",
	Short: "Import current connections and reconcile tracked prospects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		result, err := app.Importer.ImportConnections(cmd.Context(), f)
		if err != nil {
			return err
		}
		return printReport(result)
	},
}

func init() {
	importCmd.AddCommand(importProspectsCmd, importConnectionsCmd)
	rootCmd.AddCommand(importCmd)
}
