package cmd

import (
	"flag"
	"io"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion describes the command line for shell completion.
func Completion() *complete.Command {
	sub := make(map[string]*complete.Command)
	for _, c := range Commands() {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		c.SetFlags(fs)
		flags := make(map[string]complete.Predictor)
		fs.VisitAll(func(f *flag.Flag) { flags[f.Name] = predictFlag(f) })
		sub[c.Name()] = &complete.Command{Flags: flags}
	}
	sub["schema"].Args = predict.Set(sourceNames())
	for _, name := range []string{"help", "flags", "commands"} {
		sub[name] = &complete.Command{}
	}
	return &complete.Command{
		Sub: sub,
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.yaml"),
			"v":      predict.Nothing,
		},
	}
}

func predictFlag(f *flag.Flag) complete.Predictor {
	switch f.Name {
	case "format":
		return predict.Set{"markdown", "csv", "jsonl"}
	case "p":
		return predict.Set{"day", "week", "month", "quarter", "year"}
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return predict.Nothing
	}
	return predict.Something
}
