package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"
)

type positionsCmd struct {
	fetchCmd
}

func (*positionsCmd) Name() string { return "positions" }
func (*positionsCmd) Synopsis() string {
	return "fetch the daily positions of the account"
}
func (*positionsCmd) Usage() string {
	return `degiro positions [-p <period> | -s <start_date>] [-d <end_date>] [-format <format>] [-save]

  Downloads the positions report of every day in the range and prints one
  table with a row per product and day. The cash fund is left out.
`
}

func (c *positionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, "positions")
}
