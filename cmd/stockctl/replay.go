package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/warp/inventory-engine/inventory"
)

type replayCmd struct {
	strict bool
	out    io.Writer
}

func (*replayCmd) Name() string { return "replay" }
func (*replayCmd) Synopsis() string { return "replays the ledger and reports what was folded" }
func (*replayCmd) Usage() string {
	return `stockctl replay [-strict]

  Reads every ledger segment, folds it and prints a summary with the live
  entries of each cache. Segments that fail to decode are listed with their
  error.

`
}

func (c *replayCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.strict, "strict", false, "exit with failure when a segment was skipped")
}

func (c *replayCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail("could not open inventory: %v", err)
	}
	defer a.Close()

	w := output(c.out)
	writeReport(w, a.Report)
	writeLive(w, a.Tracker.Snapshot())
	if c.strict && len(a.Report.Failed) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func writeReport(w io.Writer, r inventory.ReplayReport) {
	fmt.Fprintf(w, "segments: %d\n", r.Segments)
	fmt.Fprintf(w, "records:  %d\n", r.Records)
	fmt.Fprintf(w, "unknown:  %d\n", r.Unknown)
	fmt.Fprintf(w, "rejected: %d\n", r.Rejected)
	for _, f := range r.Failed {
		fmt.Fprintf(w, "skipped %s: %v\n", f.Segment, f.Err)
	}
}

// writeLive prints how many entries each cache holds, hidden ones included.
func writeLive(w io.Writer, s inventory.Snapshot) {
	fmt.Fprintf(w, "stock:    %d\n", len(s.Stock))
	fmt.Fprintf(w, "orders:   %d\n", len(s.Orders))
	fmt.Fprintf(w, "projects: %d\n", len(s.Projects))
}

func output(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
