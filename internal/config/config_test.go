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
	cfg := Default()

	assert.Equal(t, "nmap", cfg.Engine.BinaryPath)
	assert.Equal(t, 3, cfg.Engine.MaxConcurrentScans)
	assert.Equal(t, 3, cfg.Engine.DefaultTiming)
	assert.Equal(t, time.Second, cfg.Engine.TerminateGrace)
	assert.Equal(t, 10000, cfg.Targets.CIDRCap)
	assert.Equal(t, 1000, cfg.Targets.RangeCap)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Engine.BinaryPath, cfg.Engine.BinaryPath)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scanwell.yaml")
	yamlData := `
engine:
  binary_path: /usr/local/bin/nmap
  max_concurrent_scans: 5
targets:
  range_cap: 256
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/nmap", cfg.Engine.BinaryPath)
	assert.Equal(t, 5, cfg.Engine.MaxConcurrentScans)
	assert.Equal(t, 256, cfg.Targets.RangeCap)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched fields keep their defaults.
	assert.Equal(t, 3, cfg.Engine.DefaultTiming)
}

func TestLoadScheduleJobs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scanwell.yaml")
	yamlData := `
scheduler:
  enabled: true
  timezone: Europe/Stockholm
  jobs:
    - name: nightly dmz
      cron: "0 2 * * *"
      targets: "192.168.1.0/24"
      options:
        preset: top1000
        version_detection: true
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Scheduler.Jobs, 1)
	job := cfg.Scheduler.Jobs[0]
	assert.Equal(t, "nightly dmz", job.Name)
	assert.Equal(t, "0 2 * * *", job.Cron)
	assert.Equal(t, "192.168.1.0/24", job.Targets)
	assert.Equal(t, "top1000", string(job.Options.Preset))
	assert.True(t, job.Options.VersionDetection)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "empty binary path",
			mutate:  func(c *Config) { c.Engine.BinaryPath = "" },
			wantErr: "binary path",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Engine.MaxConcurrentScans = 0 },
			wantErr: "max concurrent scans",
		},
		{
			name:    "timing out of range",
			mutate:  func(c *Config) { c.Engine.DefaultTiming = 6 },
			wantErr: "timing",
		},
		{
			name:    "negative range cap",
			mutate:  func(c *Config) { c.Targets.RangeCap = -1 },
			wantErr: "range cap",
		},
		{
			name:    "bad api port",
			mutate:  func(c *Config) { c.API.Port = 99999 },
			wantErr: "API port",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "log level",
		},
		{
			name: "bad scheduler timezone",
			mutate: func(c *Config) {
				c.Scheduler.Enabled = true
				c.Scheduler.Timezone = "Mars/Olympus"
			},
			wantErr: "timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "scanwell.yaml")

	cfg := Default()
	cfg.Engine.MaxConcurrentScans = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Engine.MaxConcurrentScans)
}
