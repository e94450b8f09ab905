package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config defines server and CLI configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Catalog CatalogConfig `yaml:"catalog"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Store drivers.
const (
	DriverFiles  = "files"
	DriverSQLite = "sqlite"
)

type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type LedgerConfig struct {
	AllowImplicitTake bool `yaml:"allow_implicit_take"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Store: StoreConfig{
			Driver: DriverFiles,
			Path:   DefaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultDataDir is $XDG_DATA_HOME/inventory-engine, falling back to
// ~/.local/share/inventory-engine.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "inventory-engine")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "inventory-engine"
	}
	return filepath.Join(home, ".local", "share", "inventory-engine")
}

// Load reads configuration from an optional YAML file and environment
// variables. path overrides INVENTORY_CONFIG_PATH when set.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("INVENTORY_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("INVENTORY_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("INVENTORY_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid INVENTORY_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if driver := os.Getenv("INVENTORY_STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}
	if storePath := os.Getenv("INVENTORY_STORE_PATH"); storePath != "" {
		cfg.Store.Path = storePath
	}
	if catalogPath := os.Getenv("INVENTORY_CATALOG_PATH"); catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	if level := os.Getenv("INVENTORY_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that Load cannot fix up.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverFiles, DriverSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
