package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/warp/inventory-engine/catalog"
	"github.com/warp/inventory-engine/inventory"
)

type itemsCmd struct {
	out io.Writer
}

func (*itemsCmd) Name() string { return "items" }
func (*itemsCmd) Synopsis() string { return "lists the item catalog" }
func (*itemsCmd) Usage() string {
	return `stockctl items

  Lists every item type with its tracking policy. Catalog files also show
  their summary.

`
}

func (*itemsCmd) SetFlags(*flag.FlagSet) {}

func (c *itemsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail("could not open inventory: %v", err)
	}
	defer a.Close()
	if a.Items == nil {
		return fail("no item catalog configured")
	}
	if err := writeItems(ctx, output(c.out), a.Items); err != nil {
		return fail("%v", err)
	}
	return subcommands.ExitSuccess
}

func writeItems(ctx context.Context, w io.Writer, items inventory.ItemStore) error {
	defs, err := items.ListItems(ctx)
	if err != nil {
		return err
	}
	cat, _ := items.(*catalog.Catalog)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTRACK\tPIECE\tUNIT\tSUMMARY")
	for _, d := range defs {
		var summary string
		if cat != nil {
			if doc, ok := cat.Document(d.ID); ok {
				summary = doc.Abstract()
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			d.ID, d.Name, d.Policy.Tracking, d.Policy.PieceSize, d.Policy.Unit, summary)
	}
	return tw.Flush()
}
