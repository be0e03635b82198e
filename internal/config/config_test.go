package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config directory at a fresh temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3600, cfg.Reminder.Interval)
	assert.Empty(t, cfg.Device.Name, "any bottle exposing the UART service matches")
	assert.Equal(t, 15*time.Second, cfg.Device.ScanTimeout)
	assert.Equal(t, 5*time.Second, cfg.Device.SendTimeout)
	assert.Equal(t, uint32(3), cfg.Device.Breaker.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.Device.Breaker.Timeout)
	assert.False(t, cfg.Device.Simulate)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.Metrics.Addr)

	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hydrate.db"), cfg.Storage.Path)
	assert.Equal(t, filepath.Join(dir, "hydrate.log"), cfg.Logging.Output)
}

func TestLoadFromFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
reminder:
  interval: 90
device:
  name: MyBottle
  send_timeout: 2s
  simulate: true
  breaker:
    max_failures: 5
storage:
  path: /tmp/hydrate-test.db
logging:
  level: debug
  format: text
  output: stderr
metrics:
  addr: 127.0.0.1:9091
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90, cfg.Reminder.Interval)
	assert.Equal(t, "MyBottle", cfg.Device.Name)
	assert.Equal(t, 2*time.Second, cfg.Device.SendTimeout)
	assert.True(t, cfg.Device.Simulate)
	assert.Equal(t, uint32(5), cfg.Device.Breaker.MaxFailures)
	assert.Equal(t, "/tmp/hydrate-test.db", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.Equal(t, "127.0.0.1:9091", cfg.Metrics.Addr)
}

func TestLoadFindsFileInConfigDir(t *testing.T) {
	isolate(t)
	dir, err := DefaultDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	writeConfig(t, dir, "reminder:\n  interval: 1200\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1200, cfg.Reminder.Interval)
}

func TestLoadEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("HYDRATE_REMINDER_INTERVAL", "45")
	t.Setenv("HYDRATE_DEVICE_SIMULATE", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Reminder.Interval)
	assert.True(t, cfg.Device.Simulate)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero interval", "reminder:\n  interval: 0\n"},
		{"negative interval", "reminder:\n  interval: -10\n"},
		{"bad service uuid", "device:\n  service_uuid: not-a-uuid\n"},
		{"bad characteristic uuid", "device:\n  characteristic_uuid: ffe1\n"},
		{"zero send timeout", "device:\n  send_timeout: 0s\n"},
		{"zero breaker failures", "device:\n  breaker:\n    max_failures: 0\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad format", "logging:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			_, err := Load(writeConfig(t, dir, tt.body))
			assert.Error(t, err)
		})
	}
}
