package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"INVENTORY_CONFIG_PATH", "INVENTORY_SERVER_HOST", "INVENTORY_SERVER_PORT",
		"INVENTORY_STORE_DRIVER", "INVENTORY_STORE_PATH", "INVENTORY_CATALOG_PATH",
		"INVENTORY_LOG_LEVEL",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_DATA_HOME", "/data")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, DriverFiles, cfg.Store.Driver)
	assert.Equal(t, filepath.Join("/data", "inventory-engine"), cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Ledger.AllowImplicitTake)
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN: a config file and one env override
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
store:
  driver: sqlite
  path: /var/lib/inventory.db
catalog:
  path: /srv/catalog
ledger:
  allow_implicit_take: true
log:
  level: debug
`), 0o644))
	t.Setenv("INVENTORY_CONFIG_PATH", path)
	t.Setenv("INVENTORY_SERVER_PORT", "7070")

	// WHEN
	cfg, err := Load("")

	// THEN: env wins over the file, the file over defaults
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/var/lib/inventory.db", cfg.Store.Path)
	assert.Equal(t, "/srv/catalog", cfg.Catalog.Path)
	assert.True(t, cfg.Ledger.AllowImplicitTake)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	t.Setenv("INVENTORY_SERVER_PORT", "http")
	_, err := Load("")
	assert.ErrorContains(t, err, "INVENTORY_SERVER_PORT")

	t.Setenv("INVENTORY_SERVER_PORT", "")
	t.Setenv("INVENTORY_STORE_DRIVER", "postgres")
	_, err = Load("")
	assert.ErrorContains(t, err, "unknown store driver")

	t.Setenv("INVENTORY_STORE_DRIVER", "")
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}
