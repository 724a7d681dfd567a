package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/func/seeder/provider/openstack"
	"github.com/func/seeder/resource"
	"github.com/spf13/cobra"
)

var kindsCommand = &cobra.Command{
	Use:   "kinds [kind...]",
	Short: "List the supported kinds and their fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listKinds(cmd.OutOrStdout(), args)
	},
}

func init() {
	Seeder.AddCommand(kindsCommand)
}

func listKinds(w io.Writer, names []string) error {
	reg := resource.NewRegistry(openstack.Kinds(&openstack.Clients{})...)
	if len(names) == 0 {
		names = reg.Names()
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	for i, name := range names {
		k := reg.Kind(name)
		if k == nil {
			return resource.Errorf(resource.UnknownKind, "unknown kind %q", name)
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		var extra []string
		if k.Parallel {
			extra = append(extra, "parallel")
		}
		if _, ok := k.Pruner(); ok {
			extra = append(extra, "prunable")
		}
		suffix := ""
		if len(extra) > 0 {
			suffix = " " + faint("("+strings.Join(extra, ", ")+")")
		}
		fmt.Fprintf(w, "%s %s%s\n", cyan(k.Name), faint("service="+k.Service), suffix)

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, f := range k.Fields {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.Name, f.Type.FriendlyName(), strings.Join(attributes(f), " "))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func attributes(f *resource.Field) []string {
	var out []string
	flag := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	flag(f.Key, "key")
	flag(f.Required, "required")
	flag(f.Immutable, "immutable")
	flag(f.CreateOnly, "create-only")
	flag(f.Sensitive, "sensitive")
	if f.Ref != nil {
		out = append(out, "ref="+f.Ref.Kind)
	}
	if f.Default != "" {
		out = append(out, "default="+f.Default)
	}
	if f.Rule != "" {
		out = append(out, "rule="+f.Rule)
	}
	return out
}
