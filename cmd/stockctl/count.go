package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/warp/inventory-engine/inventory"
)

type countCmd struct {
	cache  string
	at     string
	part   string
	size   uint64
	serial string
	out    io.Writer
}

func (*countCmd) Name() string { return "count" }
func (*countCmd) Synopsis() string { return "prints counts of an item or at a location" }
func (*countCmd) Usage() string {
	return `stockctl count [-cache stock|orders|projects] [-at <name>] [-part <type> [-size N | -serial S]]

  Lists the entries of one cache. With -at only, lists everything at that
  location, source or project. With -part only, lists every variant of the
  item type, or the exact item when -size or -serial is given. With both,
  prints a single entry.

Usage Examples:
$ stockctl count -at shelf-a
$ stockctl count -cache orders -part resistor

`
}

func (c *countCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cache, "cache", "stock", "cache to read: stock, orders or projects")
	f.StringVar(&c.at, "at", "", "location, source or project")
	f.StringVar(&c.part, "part", "", "item type")
	f.Uint64Var(&c.size, "size", 0, "piece size")
	f.StringVar(&c.serial, "serial", "", "serial number")
}

func (c *countCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cache, err := inventory.ParseCacheKind(c.cache)
	if err != nil {
		return fail("%v", err)
	}
	if c.at == "" && c.part == "" {
		return fail("one of -at or -part is required")
	}

	a, err := openApp(ctx)
	if err != nil {
		return fail("could not open inventory: %v", err)
	}
	defer a.Close()

	writeEntries(output(c.out), c.query(a.Tracker, cache))
	return subcommands.ExitSuccess
}

func (c *countCmd) item() inventory.ItemID {
	typ := inventory.TypeID(c.part)
	switch {
	case c.serial != "":
		return inventory.Unique(typ, c.serial)
	case c.size > 0:
		return inventory.Piece(typ, c.size)
	}
	return inventory.Simple(typ)
}

func (c *countCmd) query(t *inventory.Tracker, cache inventory.CacheKind) []inventory.Entry {
	exact := c.size > 0 || c.serial != ""
	switch {
	case c.part != "" && c.at != "":
		return []inventory.Entry{t.Get(cache, c.item(), inventory.Simple(inventory.TypeID(c.at)))}
	case c.at != "":
		return t.ByDimension(cache, inventory.Simple(inventory.TypeID(c.at)))
	case exact:
		return t.ByItem(cache, c.item())
	}
	return t.ByItemType(cache, inventory.TypeID(c.part))
}

func writeEntries(w io.Writer, entries []inventory.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tAT\tADDED\tREMOVED\tREQUIRED\tCOUNT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
			e.Item, e.Dimension, e.Added, e.Removed, e.Required, e.Count())
	}
	total := inventory.Sum(entries)
	fmt.Fprintf(tw, "TOTAL\t\t%d\t%d\t%d\t%d\n", total.Added, total.Removed, total.Required, total.Count())
	tw.Flush()
}
