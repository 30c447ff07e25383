package config

import (
	"fmt"
	"os"
	"path/filepath"

	"tradepost/pkg/core"
)

const appDirName = "tradepost"

// initializeConfig creates or loads the configuration.
func initializeConfig(providedPath string, defaultPath string, log core.Logger) (*Config, error) {
	// Try provided path first if specified
	if providedPath != "" {
		config, err := loadConfigFromPath(providedPath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from provided path: %w", err)
		}
		return config, nil
	}

	// Try default path, create if doesn't exist
	if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
		config := DefaultConfig(log)
		if err := config.WriteToFile(defaultPath); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		log.Info("Wrote default configuration", "path", defaultPath)
		return config, nil
	}

	config, err := loadConfigFromPath(defaultPath, log)
	if err != nil {
		log.Warn("Falling back to default configuration", "path", defaultPath, "error", err)
		return DefaultConfig(log), nil
	}
	return config, nil
}

// FindConfig locates and initializes the configuration. Lookup order is the
// provided path, then <user config dir>/tradepost/config.json, then defaults.
func FindConfig(providedPath string, log core.Logger) (*Config, error) {
	log.Info("Looking for configuration", "provided_path", providedPath)

	homeConfigDir, err := os.UserConfigDir()
	if err != nil {
		log.Error("Failed to get user config directory", err)
		return nil, err
	}

	defaultConfigDir := filepath.Join(homeConfigDir, appDirName)
	defaultConfigPath := filepath.Join(defaultConfigDir, "config.json")

	log.Debug("Configuration paths",
		"config_dir", defaultConfigDir,
		"config_path", defaultConfigPath)

	log.Debug("Ensuring directory exists", "path", defaultConfigDir)
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		log.Error("Failed to create directory", err, "path", defaultConfigDir)
		return nil, err
	}

	config, err := initializeConfig(providedPath, defaultConfigPath, log)
	if err != nil {
		return nil, err
	}

	config.overrideWithEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}
