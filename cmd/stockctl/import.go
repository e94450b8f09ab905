package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/warp/inventory-engine/app"
	"github.com/warp/inventory-engine/catalog"
	"github.com/warp/inventory-engine/csvimport"
	"github.com/warp/inventory-engine/inventory"
	"github.com/warp/inventory-engine/ledgerfile"
	"github.com/warp/inventory-engine/store/sqlite"
)

type importCmd struct {
	ledgerCSV string
	partsCSV  string
	segments  string
	out       io.Writer
}

func (*importCmd) Name() string { return "import" }
func (*importCmd) Synopsis() string { return "imports CSV exports or a ledger directory" }
func (*importCmd) Usage() string {
	return `stockctl import -ledger <file.csv> | -parts <file.csv> | -segments <dir>

  -ledger    records the rows of a ledger CSV export as one transaction
  -parts     writes the rows of a parts CSV export into the item catalog
  -segments  copies a directory of ledger files into the sqlite store,
             keeping file names as segments

`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledgerCSV, "ledger", "", "ledger CSV export")
	f.StringVar(&c.partsCSV, "parts", "", "parts CSV export")
	f.StringVar(&c.segments, "segments", "", "directory of ledger files")
}

func (c *importCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		return fail("could not open inventory: %v", err)
	}
	defer a.Close()

	switch {
	case c.ledgerCSV != "":
		err = c.importLedger(ctx, a)
	case c.partsCSV != "":
		err = c.importParts(ctx, a)
	case c.segments != "":
		err = c.importSegments(ctx, a)
	default:
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	if err != nil {
		return fail("%v", err)
	}
	return subcommands.ExitSuccess
}

func (c *importCmd) importLedger(ctx context.Context, a *app.App) error {
	f, err := os.Open(c.ledgerCSV)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := csvimport.NewLoader().LoadLedger(f)
	if err != nil {
		return err
	}
	tx := uuid.NewString()
	for i := range entries {
		entries[i].Transaction = tx
	}
	if err := a.Tracker.Record(ctx, a.Ledger, entries...); err != nil {
		return fmt.Errorf("record %s: %w", c.ledgerCSV, err)
	}
	fmt.Fprintf(output(c.out), "imported %d entries as %s\n", len(entries), tx)
	return nil
}

func (c *importCmd) importParts(ctx context.Context, a *app.App) error {
	if a.Items == nil {
		return fmt.Errorf("no item catalog configured")
	}
	f, err := os.Open(c.partsCSV)
	if err != nil {
		return err
	}
	defer f.Close()

	docs, err := csvimport.NewLoader().LoadParts(f)
	if err != nil {
		return err
	}
	cat, isCatalog := a.Items.(*catalog.Catalog)
	for _, doc := range docs {
		if isCatalog {
			err = cat.SaveDocument(ctx, doc)
		} else {
			err = saveDefinition(ctx, a.Items, doc)
		}
		if err != nil {
			return fmt.Errorf("part %s: %w", doc.ID, err)
		}
	}
	fmt.Fprintf(output(c.out), "imported %d parts\n", len(docs))
	return nil
}

func saveDefinition(ctx context.Context, items inventory.ItemStore, doc catalog.Document) error {
	def, err := doc.Definition()
	if err != nil {
		return err
	}
	return items.SaveItem(ctx, def)
}

func (c *importCmd) importSegments(ctx context.Context, a *app.App) error {
	db, ok := a.Ledger.(*sqlite.Store)
	if !ok {
		return fmt.Errorf("segments import needs the sqlite store driver")
	}
	dir := ledgerfile.NewDir(c.segments, ledgerfile.Decoder{
		AllowImplicitTake: a.Config.Ledger.AllowImplicitTake,
	})
	segments, err := dir.Segments(ctx)
	if err != nil {
		return err
	}
	if err := db.Import(ctx, segments...); err != nil {
		return err
	}
	report, err := a.Tracker.Replay(ctx, db)
	if err != nil {
		return err
	}
	n, err := db.Len(ctx)
	if err != nil {
		return err
	}
	w := output(c.out)
	fmt.Fprintf(w, "imported %d segments, ledger holds %d entries\n", len(segments), n)
	writeReport(w, report)
	return nil
}
