package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "~/.config/tally", cfg.Storage.Path)
	assert.Equal(t, "tally.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, "wal", cfg.Storage.JournalMode)
	assert.Equal(t, 5000, cfg.Storage.BusyTimeoutMS)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Empty(t, cfg.Export.Dir)
	assert.NoError(t, cfg.Validate())
}

func TestLoadValidYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
storage:
  sqlite_file: "other.db"
  busy_timeout_ms: 250
logging:
  level: "debug"
  format: "json"
`
	err := os.WriteFile(cfgPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "other.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, 250*time.Millisecond, cfg.BusyTimeout())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Non-overridden values remain defaults
	assert.Equal(t, "~/.config/tally", cfg.Storage.Path)
	assert.Equal(t, "wal", cfg.Storage.JournalMode)
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	err := os.WriteFile(cfgPath, []byte(":::not valid yaml{{{"), 0644)
	require.NoError(t, err)

	_, err = Load(cfgPath)
	assert.Error(t, err)
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent", "config.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		section string
	}{
		{"unknown level", "logging:\n  level: loud\n", "logging"},
		{"unknown format", "logging:\n  format: xml\n", "logging"},
		{"unknown journal mode", "storage:\n  journal_mode: sideways\n", "storage"},
		{"negative busy timeout", "storage:\n  busy_timeout_ms: -1\n", "storage"},
		{"empty sqlite file", "storage:\n  sqlite_file: \"\"\n", "storage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(tt.yaml), 0644))

			_, err := Load(cfgPath)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid "+tt.section+" config")
		})
	}
}

func TestLoadOrCreateCreatesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "deep", "config.yaml")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)

	// Should return defaults
	assert.Equal(t, "tally.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// File should now exist on disk
	_, statErr := os.Stat(cfgPath)
	assert.NoError(t, statErr)

	// File should be valid YAML loadable again
	cfg2, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, cfg2)
}

func TestLoadOrCreateLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
export:
  dir: "/tmp/exports"
`
	err := os.WriteFile(cfgPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/exports", cfg.Export.Dir)
	// Other fields remain defaults
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestDerivedPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	dbPath, err := cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "tally", "tally.db"), dbPath)

	exportDir, err := cfg.ExportDir()
	require.NoError(t, err)
	assert.Equal(t, ".", exportDir)

	cfg.Export.Dir = "~/exports"
	exportDir, err = cfg.ExportDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "exports"), exportDir)
}
