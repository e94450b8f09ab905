/*
app.go - Wiring a configured engine

PURPOSE:
  Opens the ledger store, the item catalog and the tracker described by a
  config.Config, and replays the ledger once. Both binaries start through
  Open so the server and the CLI always see the same counts.

STORE SELECTION:
  store.driver=files   ledgerfile.Dir over store.path
  store.driver=sqlite  sqlite.Store at store.path

  Items come from catalog.path when set, otherwise from the sqlite store.
  A files ledger without a catalog tracks every item as untracked.

SEE ALSO:
  - cmd/server/main.go
  - cmd/stockctl
*/
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/warp/inventory-engine/catalog"
	"github.com/warp/inventory-engine/config"
	"github.com/warp/inventory-engine/inventory"
	"github.com/warp/inventory-engine/ledgerfile"
	"github.com/warp/inventory-engine/store/sqlite"
)

// App holds the opened dependencies.
type App struct {
	Config  config.Config
	Tracker *inventory.Tracker
	Ledger  inventory.Store
	Items   inventory.ItemStore // nil when no catalog is configured
	Report  inventory.ReplayReport
	Logger  *slog.Logger

	closers []io.Closer
}

// Open opens everything cfg names and replays the ledger. A replay that
// skips bad segments still opens; the skipped segments are in Report.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, db)
		a.Ledger = db
		a.Items = db
	case config.DriverFiles:
		a.Ledger = ledgerfile.NewDir(cfg.Store.Path, ledgerfile.Decoder{
			AllowImplicitTake: cfg.Ledger.AllowImplicitTake,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.Catalog.Path != "" {
		cat, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		a.Items = cat
	}

	var policies inventory.Policies
	if a.Items != nil {
		policies = a.Items
	}
	a.Tracker = inventory.NewTracker(policies, inventory.WithLogger(logger))

	report, err := a.Tracker.Replay(ctx, a.Ledger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Report = report
	return a, nil
}

// Close releases the stores.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
