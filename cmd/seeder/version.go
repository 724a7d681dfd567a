package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version contains the current version.
	// Set in build using -ldflags "-X github.com/func/seeder/cmd/seeder.Version=<value>"
	Version = "dev"

	// BuildDate contains a string with the build date.
	BuildDate = "unknown"
)

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "seeder\n")
		fmt.Fprintf(out, "  Version:     %s\n", Version)
		fmt.Fprintf(out, "  Built:       %s\n", BuildDate)
		fmt.Fprintf(out, "  Go version:  %s\n", runtime.Version())
	},
}

func init() {
	Seeder.AddCommand(versionCommand)
}
