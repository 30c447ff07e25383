package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"tradepost/pkg/core"
)

// LoadFromFile loads the configuration from a JSON or YAML file on top of
// the values already in c.
func (c *Config) LoadFromFile(path string, log core.Logger) error {
	log.Debug("Loading configuration from file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("Failed to read config file", err, "path", path)
		return err
	}
	log.Debug("Config file read successfully", "size_bytes", len(data))

	var temp fileConfig
	if isYAML(path) {
		err = yaml.Unmarshal(data, &temp)
	} else {
		err = json.Unmarshal(data, &temp)
	}
	if err != nil {
		log.Error("Failed to parse config file", err, "path", path)
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	log.Debug("Config file parsed successfully")

	c.apply(temp)
	return c.Validate()
}

// WriteToFile serializes c in the format implied by the path extension.
func (c *Config) WriteToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c.toFile())
	} else {
		data, err = json.MarshalIndent(c.toFile(), "", "    ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.backendURL, "http://") && !strings.HasPrefix(c.backendURL, "https://") {
		return fmt.Errorf("invalid backend URL: %q", c.backendURL)
	}
	if !strings.Contains(c.protocolPath, "{game}") {
		return fmt.Errorf("protocol path %q lacks the {game} token", c.protocolPath)
	}
	if c.hostEventsURL != "" && !strings.HasPrefix(c.hostEventsURL, "ws://") && !strings.HasPrefix(c.hostEventsURL, "wss://") {
		return fmt.Errorf("invalid host events URL: %q", c.hostEventsURL)
	}
	return nil
}

// overrideWithEnv lets environment variables win over the file.
func (c *Config) overrideWithEnv() {
	if v := os.Getenv("TRADEPOST_BACKEND_URL"); v != "" {
		c.backendURL = v
	}
	if v := os.Getenv("TRADEPOST_HOST_SOCKET"); v != "" {
		c.hostSocket = v
	}
	if v := os.Getenv("TRADEPOST_HOST_EVENTS_URL"); v != "" {
		c.hostEventsURL = v
	}
}

// loadConfigFromPath loads the configuration from a file.
func loadConfigFromPath(path string, log core.Logger) (*Config, error) {
	config := DefaultConfig(log)
	if err := config.LoadFromFile(path, log); err != nil {
		return nil, err
	}
	return config, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
