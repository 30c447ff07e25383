package config

import (
	"os"
	"path/filepath"
	"time"

	"tradepost/pkg/core"
)

const (
	DefaultBackendURL           = "http://127.0.0.1:8420"
	DefaultProtocolPath         = "/{game}/TradingPost"
	DefaultHostSocket           = "/tmp/tradepost-host.sock"
	DefaultHostEventsURL        = "ws://127.0.0.1:8421/events"
	DefaultDebounce             = 300 * time.Millisecond
	DefaultRequestTimeout       = 15 * time.Second
	DefaultNameFlush            = 500 * time.Millisecond
	DefaultBrowsePageSize       = 50
	DefaultTransactionsPageSize = 200
	DefaultFavoritesLimit       = 250
)

// DefaultConfig creates a default configuration.
func DefaultConfig(log core.Logger) *Config {
	log.Debug("Creating default configuration")

	config := &Config{
		backendURL:           DefaultBackendURL,
		protocolPath:         DefaultProtocolPath,
		hostSocket:           DefaultHostSocket,
		hostEventsURL:        DefaultHostEventsURL,
		databasePath:         defaultDatabasePath(),
		debounce:             DefaultDebounce,
		requestTimeout:       DefaultRequestTimeout,
		nameFlush:            DefaultNameFlush,
		browsePageSize:       DefaultBrowsePageSize,
		transactionsPageSize: DefaultTransactionsPageSize,
		favoritesLimit:       DefaultFavoritesLimit,
		notifyCommand:        "",
		log:                  log,
	}

	log.Info("Created default configuration",
		"backend_url", config.backendURL,
		"host_socket", config.hostSocket,
		"database_path", config.databasePath)

	return config
}

// defaultDatabasePath places the cache database next to the config file.
func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tradepost.db"
	}
	return filepath.Join(dir, appDirName, "tradepost.db")
}
