package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/func/seeder/config"
	"github.com/func/seeder/journal"
	"github.com/func/seeder/provider/openstack"
	"github.com/func/seeder/resource"
	"github.com/func/seeder/resource/reconciler"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var applyOptions = config.DefaultOptions()

var applyCommand = &cobra.Command{
	Use:   "apply file|dir...",
	Short: "Create and update the items declared in seed files",
	Long: `Apply creates the declared items that do not exist and updates the
ones that differ. Kinds listed with --prune also have their seeded items
deleted when they are no longer declared.

Exit codes: 0 success, 1 partial failure, 2 configuration error,
3 authentication failure.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := signalContext(context.Background())
		opts := options(applyOptions, args)
		code := runApply(ctx, opts, openstack.SessionFromEnv, cmd.OutOrStdout(), cmd.ErrOrStderr())
		os.Exit(code)
	},
}

func init() {
	addFlags(applyCommand, &applyOptions)
	Seeder.AddCommand(applyCommand)
}

// runApply reconciles the seed files and returns the exit code.
func runApply(ctx context.Context, opts config.Options, newSession func() (*openstack.Session, error), stdout, stderr io.Writer) int {
	run := ksuid.New().String()
	logger, err := newLogger(opts.LogLevel, run)
	if err != nil {
		fmt.Fprintf(stderr, "Create logger: %v\n", err)
		return journal.ExitConfig
	}
	defer func() {
		_ = logger.Sync()
	}()

	clients := &openstack.Clients{
		Interface:   opts.Interface,
		Region:      opts.Region,
		CallTimeout: opts.CallTimeout,
		Logger:      logger.Named("clients"),
	}
	reg := resource.NewRegistry(openstack.Kinds(clients)...)

	desired, plan, err := load(opts, reg, &config.Loader{})
	if err != nil {
		printErrors(stderr, err)
		return journal.ExitConfig
	}

	if desired.Len() > 0 {
		session, err := newSession()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return journal.ExitAuth
		}
		session.Logger = logger.Named("session")
		clients.Session = session
	}

	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	r := &reconciler.Reconciler{
		Registry:    reg,
		Services:    clients,
		Concurrency: opts.Concurrency,
		Prune:       opts.PruneKinds(),
		Logger:      logger.Named("reconciler"),
	}
	j, err := r.Reconcile(ctx, plan, desired)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return journal.ExitFailed
	}

	code := j.ExitCode()
	if err := report(j, opts, run, stdout); err != nil {
		fmt.Fprintf(stderr, "Write report: %v\n", err)
	}
	if opts.Metrics != "" {
		if err := j.WriteMetrics(opts.Metrics); err != nil {
			logger.Error("Write metrics", zap.String("path", opts.Metrics), zap.Error(err))
			if code == journal.ExitOK {
				code = journal.ExitFailed
			}
		}
	}
	return code
}

func report(j *journal.Journal, opts config.Options, run string, w io.Writer) error {
	if opts.Format == "json" {
		return j.WriteJSON(w, run)
	}
	v, err := journal.ParseVerbosity(opts.Verbosity)
	if err != nil {
		return err
	}
	return j.WriteText(w, v)
}
