package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/func/seeder/config"
	"github.com/func/seeder/journal"
	"github.com/func/seeder/provider/openstack"
	"github.com/func/seeder/resource"
	"github.com/spf13/cobra"
)

var validateOptions = config.DefaultOptions()

var validateCommand = &cobra.Command{
	Use:   "validate file|dir...",
	Short: "Check seed files and print the plan",
	Long: `Validate loads and checks seed files without contacting the cloud, and
prints the kinds in the order they would be reconciled.

Exit codes: 0 valid, 2 configuration error.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := options(validateOptions, args)
		os.Exit(runValidate(opts, &config.Loader{}, cmd.OutOrStdout(), cmd.ErrOrStderr()))
	},
}

func init() {
	addFlags(validateCommand, &validateOptions)
	Seeder.AddCommand(validateCommand)
}

func runValidate(opts config.Options, loader *config.Loader, stdout, stderr io.Writer) int {
	reg := resource.NewRegistry(openstack.Kinds(&openstack.Clients{})...)
	desired, plan, err := load(opts, reg, loader)
	if err != nil {
		printErrors(stderr, err)
		return journal.ExitConfig
	}
	prune := opts.PruneKinds()
	for _, k := range plan {
		items := desired[k.Name]
		suffix := ""
		if prune[k.Name] {
			suffix = ", pruned"
		}
		fmt.Fprintf(stdout, "%s (%d %s%s)\n", k.Name, len(items), plural(len(items), "item", "items"), suffix)
		for _, it := range items {
			fmt.Fprintf(stdout, "  %s\n", it.Key())
		}
	}
	fmt.Fprintf(stdout, "%d %s in %d %s\n", desired.Len(), plural(desired.Len(), "item", "items"), len(plan), plural(len(plan), "kind", "kinds"))
	return journal.ExitOK
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
