/*
main.go - Application entry point

PURPOSE:
  Starts the inventory engine HTTP server. Loads configuration, opens the
  ledger store and catalog, replays the ledger and serves the API until
  interrupted.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (file, then environment)
  3. Open store and catalog, replay the ledger (app.Open)
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (default: $INVENTORY_CONFIG_PATH)
  -port    HTTP server port, overrides the config

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # File ledger with a markdown catalog
  INVENTORY_STORE_PATH=./ledger INVENTORY_CATALOG_PATH=./parts ./server

  # SQLite ledger
  INVENTORY_STORE_DRIVER=sqlite INVENTORY_STORE_PATH=./inventory.db ./server -port=3000

SEE ALSO:
  - config/config.go: Configuration keys and environment variables
  - app/app.go: Store selection and replay
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/inventory-engine/api"
	"github.com/warp/inventory-engine/app"
	"github.com/warp/inventory-engine/config"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	level, _ := config.ParseLogLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	a, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open inventory", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	handler := api.NewHandler(a.Tracker, a.Ledger, a.Items, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			"addr", server.Addr,
			"store", cfg.Store.Driver,
			"records", a.Report.Records)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
