package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/func/seeder/config"
	"github.com/func/seeder/resource"
	"github.com/func/seeder/resource/graph"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// addFlags binds the run options to the flags of a command.
func addFlags(cmd *cobra.Command, o *config.Options) {
	f := cmd.Flags()
	f.StringVar(&o.Interface, "interface", o.Interface, "Endpoint interface: public, internal or admin. Env var: OS_INTERFACE")
	f.StringVar(&o.Region, "region", o.Region, "Region of endpoints. Env var: OS_REGION_NAME")
	f.StringSliceVar(&o.Prune, "prune", o.Prune, "Kinds to delete seeded items of that are no longer declared")
	f.UintVar(&o.Concurrency, "concurrency", o.Concurrency, "Maximum number of items of a kind reconciled at the same time")
	f.DurationVar(&o.Deadline, "deadline", o.Deadline, "Time limit for the entire run, 0 for none")
	f.DurationVar(&o.CallTimeout, "call-timeout", o.CallTimeout, "Time limit for every remote call")
	f.StringVar(&o.Verbosity, "verbosity", o.Verbosity, "Report verbosity: quiet, normal or verbose")
	f.StringVar(&o.Format, "format", o.Format, "Report format: text or json")
	f.StringVar(&o.Metrics, "metrics", o.Metrics, "Write metrics to this file in the node exporter textfile format")
	f.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: debug, info, warn or error")
}

// options returns the options of a command with environment fallbacks.
func options(o config.Options, args []string) config.Options {
	o.Files = args
	o.ApplyEnv(os.LookupEnv)
	return o
}

// load validates the options, loads the seed files and orders the declared
// kinds.
func load(o config.Options, reg *resource.Registry, loader *config.Loader) (resource.Desired, []*resource.Kind, error) {
	if err := o.Validate(reg); err != nil {
		return nil, nil, err
	}
	raws, err := loader.Load(o.Files...)
	if err != nil {
		return nil, nil, err
	}
	desired, err := reg.Desired(raws)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.New(reg.Kinds())
	if err != nil {
		return nil, nil, err
	}
	return desired, g.Plan(desired.Kinds()), nil
}

// printErrors prints every error combined in err on a line of its own.
func printErrors(w io.Writer, err error) {
	for _, e := range multierr.Errors(err) {
		fmt.Fprintln(w, e)
	}
}

// newLogger creates the development logger writing to stderr. Every line
// carries the run id.
func newLogger(level, run string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("run", run)), nil
}
