package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/freelectron/degiro/config"
	"github.com/freelectron/degiro/renderer"
	"github.com/freelectron/degiro/store"
)

type historyCmd struct {
	run    string
	format string

	out io.Writer
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list or show the runs saved with -save" }
func (*historyCmd) Usage() string {
	return `degiro history [-run <id>] [-format <format>]

  Without -run, lists the saved runs, most recent first. With -run, prints the
  table of that run again.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.run, "run", "", "ID of the run to show.")
	f.StringVar(&c.format, "format", "markdown", "Output format of a run (markdown, csv, jsonl).")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !validFormat(c.format) {
		fmt.Fprintf(os.Stderr, "unknown output format %q\n", c.format)
		return subcommands.ExitUsageError
	}
	out := c.out
	if out == nil {
		out = os.Stdout
	}

	// the store alone does not need credentials nor a driver.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	cfg.ApplyDefaults()
	if cfg.Store.Path == "" {
		fmt.Fprintln(os.Stderr, "store.path is not configured")
		return subcommands.ExitFailure
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	if c.run == "" {
		runs, err := db.Runs(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		printMarkdown(out, renderer.RunsMarkdown(runs))
		return subcommands.ExitSuccess
	}

	run, err := db.Run(ctx, c.run)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	src, ok := sources[run.Source]
	if !ok {
		fmt.Fprintf(os.Stderr, "run %s has unknown source %q\n", run.ID, run.Source)
		return subcommands.ExitFailure
	}
	t, err := db.LoadRun(ctx, run.ID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := writeTable(out, c.format, t, src, run.FailedDays); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
