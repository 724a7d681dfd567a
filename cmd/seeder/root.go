package cmd

import (
	"github.com/spf13/cobra"
)

// Seeder is the root command.
var Seeder = &cobra.Command{
	Use:   "seeder",
	Short: "Reconcile OpenStack entities declared in seed files",
	Long: `Seeder reads seed files declaring OpenStack entities such as domains,
projects, flavors and networks, and creates or updates them until the cloud
matches the files.

Credentials are read from the standard OS_* environment variables.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}
