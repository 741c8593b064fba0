package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/freelectron/degiro"
	"github.com/freelectron/degiro/date"
	"github.com/freelectron/degiro/renderer"
	"github.com/freelectron/degiro/store"
)

// fetchCmd holds what the commands downloading a report have in common.
type fetchCmd struct {
	period    string
	start     string
	date      string
	format    string
	sessionID string
	save      bool

	out io.Writer // defaults to os.Stdout
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", "day", "Predefined period to fetch (day, week, month, quarter, year).")
	f.StringVar(&c.start, "s", "", "The start date for a custom range. Overrides -p.")
	f.StringVar(&c.date, "d", "0d", "The end date of the range (defaults to today).")
	f.StringVar(&c.format, "format", "markdown", "Output format (markdown, csv, jsonl).")
	f.StringVar(&c.sessionID, "session-id", "", "Reuse this session token instead of logging in.")
	f.BoolVar(&c.save, "save", false, "Save the table as a run in the local store.")
}

// dateRange resolves the -p, -s and -d flags. The range never goes past the
// end date.
func (c *fetchCmd) dateRange() (date.Range, error) {
	end, err := date.Parse(c.date)
	if err != nil {
		return date.Range{}, fmt.Errorf("parsing end date: %w", err)
	}
	if c.start != "" {
		start, err := date.Parse(c.start)
		if err != nil {
			return date.Range{}, fmt.Errorf("parsing start date: %w", err)
		}
		if start.After(end) {
			return date.Range{}, fmt.Errorf("start date %s is after end date %s", start, end)
		}
		return date.NewRange(start, end), nil
	}
	period, err := date.ParsePeriod(c.period)
	if err != nil {
		return date.Range{}, fmt.Errorf("parsing period: %w", err)
	}
	return date.NewRange(period.Range(end).From, end), nil
}

func (c *fetchCmd) output() io.Writer {
	if c.out == nil {
		return os.Stdout
	}
	return c.out
}

// run fetches the source named name and prints the resulting table. A
// partial fetch still prints the table but fails the command.
func (c *fetchCmd) run(ctx context.Context, name string) subcommands.ExitStatus {
	src, ok := sources[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown source %q\n", name)
		return subcommands.ExitFailure
	}
	if !validFormat(c.format) {
		fmt.Fprintf(os.Stderr, "unknown output format %q\n", c.format)
		return subcommands.ExitUsageError
	}
	r, err := c.dateRange()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig(c.sessionID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	sess, err := openSession(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	p, err := src.build(sess, cfg.PipelineOptions()...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	t, err := p.Get(ctx, r)
	var partial *degiro.FetchErrors
	if err != nil && (t == nil || !errors.As(err, &partial)) {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	var failed []date.Date
	if partial != nil {
		failed = partial.Days()
	}

	if c.save {
		id, err := saveRun(ctx, cfg.Store.Path, name, r, t, failed)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(os.Stderr, "saved run %s\n", id)
	}

	if err := writeTable(c.output(), c.format, t, src, failed); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if partial != nil {
		fmt.Fprintln(os.Stderr, partial)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func saveRun(ctx context.Context, path, name string, r date.Range, t *degiro.Table, failed []date.Date) (string, error) {
	if path == "" {
		return "", errors.New("store.path is not configured")
	}
	db, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer db.Close()
	return db.SaveRun(ctx, name, r, t, failed...)
}

func validFormat(format string) bool {
	switch format {
	case "markdown", "csv", "jsonl":
		return true
	}
	return false
}

// writeTable prints t in the given format.
func writeTable(w io.Writer, format string, t *degiro.Table, src source, failed []date.Date) error {
	switch format {
	case "csv":
		return renderer.WriteCSV(w, t, src.index())
	case "jsonl":
		return renderer.WriteJSONL(w, t, src.index())
	default:
		printMarkdown(w, renderer.TableMarkdown(t, src.options(failed)))
		return nil
	}
}
