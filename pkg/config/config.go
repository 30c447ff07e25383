package config

import (
	"time"

	"tradepost/pkg/core"
)

// Config holds the application configuration.
type Config struct {
	// Configurable via JSON/YAML file (private fields to enforce immutability)
	backendURL           string
	protocolPath         string
	hostSocket           string
	hostEventsURL        string
	databasePath         string
	debounce             time.Duration
	requestTimeout       time.Duration
	nameFlush            time.Duration
	browsePageSize       int
	transactionsPageSize int
	favoritesLimit       int
	notifyCommand        string

	log core.Logger
}

// fileConfig is the on-disk shape of Config.
type fileConfig struct {
	BackendURL           string `json:"backend_url" yaml:"backend_url"`
	ProtocolPath         string `json:"protocol_path" yaml:"protocol_path"`
	HostSocket           string `json:"host_socket" yaml:"host_socket"`
	HostEventsURL        string `json:"host_events_url" yaml:"host_events_url"`
	DatabasePath         string `json:"database_path" yaml:"database_path"`
	DebounceMS           int    `json:"debounce_ms" yaml:"debounce_ms"`
	RequestTimeoutMS     int    `json:"request_timeout_ms" yaml:"request_timeout_ms"`
	NameFlushMS          int    `json:"name_flush_ms" yaml:"name_flush_ms"`
	BrowsePageSize       int    `json:"browse_page_size" yaml:"browse_page_size"`
	TransactionsPageSize int    `json:"transactions_page_size" yaml:"transactions_page_size"`
	FavoritesLimit       int    `json:"favorites_limit" yaml:"favorites_limit"`
	NotifyCommand        string `json:"notify_command" yaml:"notify_command"`
}

// New creates a new Config instance with the provided logger.
func New(log core.Logger) *Config {
	return &Config{
		log: log,
	}
}

// GetBackendURL returns the base URL of the trading-post backend.
func (c *Config) GetBackendURL() string {
	return c.backendURL
}

// GetProtocolPath returns the RPC path template; "{game}" is replaced at request time.
func (c *Config) GetProtocolPath() string {
	return c.protocolPath
}

func (c *Config) GetHostSocket() string {
	return c.hostSocket
}

func (c *Config) GetHostEventsURL() string {
	return c.hostEventsURL
}

func (c *Config) GetDatabasePath() string {
	return c.databasePath
}

func (c *Config) GetDebounce() time.Duration {
	return c.debounce
}

func (c *Config) GetRequestTimeout() time.Duration {
	return c.requestTimeout
}

func (c *Config) GetNameFlush() time.Duration {
	return c.nameFlush
}

func (c *Config) GetBrowsePageSize() int {
	return c.browsePageSize
}

func (c *Config) GetTransactionsPageSize() int {
	return c.transactionsPageSize
}

func (c *Config) GetFavoritesLimit() int {
	return c.favoritesLimit
}

// GetNotifyCommand returns the notify command.
func (c *Config) GetNotifyCommand() string {
	return c.notifyCommand
}

func (c *Config) toFile() fileConfig {
	return fileConfig{
		BackendURL:           c.backendURL,
		ProtocolPath:         c.protocolPath,
		HostSocket:           c.hostSocket,
		HostEventsURL:        c.hostEventsURL,
		DatabasePath:         c.databasePath,
		DebounceMS:           int(c.debounce / time.Millisecond),
		RequestTimeoutMS:     int(c.requestTimeout / time.Millisecond),
		NameFlushMS:          int(c.nameFlush / time.Millisecond),
		BrowsePageSize:       c.browsePageSize,
		TransactionsPageSize: c.transactionsPageSize,
		FavoritesLimit:       c.favoritesLimit,
		NotifyCommand:        c.notifyCommand,
	}
}

// apply copies non-zero values from f over c.
func (c *Config) apply(f fileConfig) {
	if f.BackendURL != "" {
		c.backendURL = f.BackendURL
	}
	if f.ProtocolPath != "" {
		c.protocolPath = f.ProtocolPath
	}
	if f.HostSocket != "" {
		c.hostSocket = f.HostSocket
	}
	if f.HostEventsURL != "" {
		c.hostEventsURL = f.HostEventsURL
	}
	if f.DatabasePath != "" {
		c.databasePath = f.DatabasePath
	}
	if f.DebounceMS > 0 {
		c.debounce = time.Duration(f.DebounceMS) * time.Millisecond
	}
	if f.RequestTimeoutMS > 0 {
		c.requestTimeout = time.Duration(f.RequestTimeoutMS) * time.Millisecond
	}
	if f.NameFlushMS > 0 {
		c.nameFlush = time.Duration(f.NameFlushMS) * time.Millisecond
	}
	if f.BrowsePageSize > 0 {
		c.browsePageSize = f.BrowsePageSize
	}
	if f.TransactionsPageSize > 0 {
		c.transactionsPageSize = f.TransactionsPageSize
	}
	if f.FavoritesLimit > 0 {
		c.favoritesLimit = f.FavoritesLimit
	}
	if f.NotifyCommand != "" {
		c.notifyCommand = f.NotifyCommand
	}
}
