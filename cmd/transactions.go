package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"
)

type transactionsCmd struct {
	fetchCmd
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "fetch the transactions of the account" }
func (*transactionsCmd) Usage() string {
	return `degiro transactions [-p <period> | -s <start_date>] [-d <end_date>] [-format <format>] [-save]

  Downloads the transactions executed on each day of the range.
`
}

func (c *transactionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, "transactions")
}
