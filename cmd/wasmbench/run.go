package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasmbench/bench"
	"github.com/wippyai/wasmbench/config"
	"github.com/wippyai/wasmbench/engines"
)

type runOptions struct {
	duration time.Duration
	interval time.Duration
	events   int64
	tui      bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <module.wasm>",
		Short: "Run the guest's event export on every worker thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			test, err := loadTest(root, args[0], cfg, log)
			if err != nil {
				return err
			}
			defer test.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			d := newDriver(test, cfg.Threads, limits{duration: opts.duration, events: opts.events}, log)
			d.interval = opts.interval

			if opts.tui {
				err = runWithDashboard(ctx, d)
			} else {
				err = d.run(ctx)
			}
			printSummary(cmd.OutOrStdout(), test, cfg, d.stats)
			return err
		},
	}

	f := cmd.Flags()
	f.DurationVar(&opts.duration, "time", 10*time.Second, "run duration, 0 for no limit")
	f.Int64Var(&opts.events, "events", 0, "total event budget across threads, 0 for no limit")
	f.DurationVar(&opts.interval, "report-interval", 0, "period of the guest's intermediate reports")
	f.BoolVar(&opts.tui, "tui", false, "show a live dashboard")
	return cmd
}

func loadTest(root *rootOptions, path string, cfg config.Config, log *zap.Logger) (*bench.Test, error) {
	test, err := bench.Load(engines.NewRegistry(), path, cfg, bench.WithLogger(log))
	if err != nil {
		return nil, err
	}
	for name, value := range root.args {
		if err := test.SetArg(name, value); err != nil {
			test.Close()
			return nil, err
		}
	}
	return test, nil
}

func newCommandCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "command <prepare|cleanup|help> <module.wasm>",
		Short:     "Run one of the guest's custom commands",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"prepare", "cleanup", "help"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			test, err := loadTest(root, args[1], cfg, log)
			if err != nil {
				return err
			}
			defer test.Close()

			ctx := context.Background()
			runner, ok := test.CommandRunner()
			if !ok || !runner.CommandDefined(args[0]) {
				return cmd.Help()
			}
			err = runner.RunCommand(ctx, args[0])
			if derr := test.Ops.Done(ctx); err == nil {
				err = derr
			}
			return err
		},
	}
}

func newEnginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the engines compiled into this binary",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range engines.Available() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
