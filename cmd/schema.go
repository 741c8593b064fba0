package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/freelectron/degiro/renderer"
)

type schemaCmd struct {
	out io.Writer
}

func (*schemaCmd) Name() string     { return "schema" }
func (*schemaCmd) Synopsis() string { return "describe the columns of a source" }
func (*schemaCmd) Usage() string {
	return `degiro schema <source>

  Prints the index and the columns a source is validated against, with the
  report header each column is renamed from.

Sources: ` + strings.Join(sourceNames(), ", ") + `
`
}

func (*schemaCmd) SetFlags(*flag.FlagSet) {}

func (c *schemaCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "expected one source among %s\n", strings.Join(sourceNames(), ", "))
		return subcommands.ExitUsageError
	}
	src, ok := sources[f.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown source %q\n", f.Arg(0))
		return subcommands.ExitUsageError
	}
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	printMarkdown(out, renderer.SchemaMarkdown(src.format.Schema(), src.format.Translation()))
	return subcommands.ExitSuccess
}
