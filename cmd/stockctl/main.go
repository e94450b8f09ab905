// Command stockctl inspects and edits an inventory ledger from the shell.
//
// Every subcommand except fmt opens the store described by the config file
// (-config, or $INVENTORY_CONFIG_PATH) and replays it before running.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/subcommands"

	"github.com/warp/inventory-engine/app"
	"github.com/warp/inventory-engine/config"
)

// as a CLI application the lifecycle is short, global flags are fine.
var configPath = flag.String("config", "", "YAML config file")

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&replayCmd{}, "ledger")
	c.Register(&countCmd{}, "ledger")
	c.Register(&recordCmd{}, "ledger")
	c.Register(&fmtCmd{}, "ledger")

	c.Register(&importCmd{}, "data")
	c.Register(&itemsCmd{}, "data")
}

func main() {
	Register(subcommands.DefaultCommander)
	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// openApp loads the configuration and opens the replayed inventory.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	level, _ := config.ParseLogLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return app.Open(ctx, cfg, logger)
}

// fail prints an error and returns the failure status.
func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}
