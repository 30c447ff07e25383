package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradepost/pkg/logger"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig(logger.Nop())
	require.NoError(t, cfg.Validate())
	require.Equal(t, DefaultDebounce, cfg.GetDebounce())
	require.Equal(t, 200, cfg.GetTransactionsPageSize())
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend_url: https://tp.example.test
debounce_ms: 120
favorites_limit: 10
`), 0644))

	cfg, err := loadConfigFromPath(path, logger.Nop())
	require.NoError(t, err)
	require.Equal(t, "https://tp.example.test", cfg.GetBackendURL())
	require.Equal(t, 120*time.Millisecond, cfg.GetDebounce())
	require.Equal(t, 10, cfg.GetFavoritesLimit())
	require.Equal(t, DefaultProtocolPath, cfg.GetProtocolPath())
}

func TestLoadRejectsPathWithoutGameToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"protocol_path": "/static/TradingPost"}`), 0644))

	_, err := loadConfigFromPath(path, logger.Nop())
	require.Error(t, err)
}

func TestWriteThenFind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")

	cfg := DefaultConfig(logger.Nop())
	cfg.browsePageSize = 25
	require.NoError(t, cfg.WriteToFile(path))

	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("TRADEPOST_HOST_SOCKET", "/tmp/other.sock")

	found, err := FindConfig(path, logger.Nop())
	require.NoError(t, err)
	require.Equal(t, 25, found.GetBrowsePageSize())
	require.Equal(t, "/tmp/other.sock", found.GetHostSocket())
}
