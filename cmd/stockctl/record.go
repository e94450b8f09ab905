package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/warp/inventory-engine/inventory"
	"github.com/warp/inventory-engine/ledgerfile"
)

type recordCmd struct {
	tx  string
	out io.Writer
	now func() time.Time
}

func (*recordCmd) Name() string { return "record" }
func (*recordCmd) Synopsis() string { return "records ledger lines as one transaction" }
func (*recordCmd) Usage() string {
	return `stockctl record [-tx <id>] <line>...

  Parses each argument as a ledger line, appends them to the store as one
  transaction and folds them. Lines without a time get the current time.
  A transaction id is generated when -tx is not given.

Usage Examples:
$ stockctl record "count=10,part=resistor,location=drawer,store"
$ stockctl record -tx move-42 "count=2,part=resistor,location=drawer,take" \
    "count=2,part=resistor,location=bench,store"

`
}

func (c *recordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.tx, "tx", "", "transaction id")
}

func (c *recordCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail("could not open inventory: %v", err)
	}
	defer a.Close()

	dec := ledgerfile.Decoder{AllowImplicitTake: a.Config.Ledger.AllowImplicitTake}
	entries, err := c.parse(dec, f.Args())
	if err != nil {
		return fail("%v", err)
	}
	if err := a.Tracker.Record(ctx, a.Ledger, entries...); err != nil {
		return fail("could not record: %v", err)
	}
	w := output(c.out)
	fmt.Fprintf(w, "recorded %d entries as %s\n", len(entries), entries[0].Transaction)
	if dir, ok := a.Ledger.(*ledgerfile.Dir); ok {
		fmt.Fprintf(w, "session: %s\n", dir.Session())
	}
	return subcommands.ExitSuccess
}

// parse reads the lines and stamps every entry with the transaction id.
func (c *recordCmd) parse(dec ledgerfile.Decoder, lines []string) ([]inventory.LedgerEntry, error) {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	tx := c.tx
	if tx == "" {
		tx = uuid.NewString()
	}

	entries := make([]inventory.LedgerEntry, 0, len(lines))
	for i, line := range lines {
		r, err := dec.ParseLine("args", i+1, line)
		if err != nil {
			return nil, err
		}
		if !r.HasTime {
			r.Entry.Time = now().UTC()
		}
		if r.Entry.Transaction == "" {
			r.Entry.Transaction = tx
		}
		entries = append(entries, r.Entry)
	}
	return entries, nil
}
