package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultOutputRoot, cfg.Run.OutputRoot)
	assert.False(t, cfg.Sync.Enabled)
	assert.Equal(t, DefaultDebounce, cfg.Debounce())
	assert.True(t, cfg.Monitoring.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
run:
  output_root: /data/runs
  model: claude-haiku-4-5
sync:
  enabled: true
  debounce_ms: 250
  workspace_root: out
status:
  enabled: true
  port: 8099
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/runs", cfg.Run.OutputRoot)
	assert.Equal(t, "claude-haiku-4-5", cfg.Run.Model)
	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce())
	assert.Equal(t, "out", cfg.Sync.WorkspaceRoot)
	assert.Equal(t, 8099, cfg.Status.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HARFORGE_OUTPUT_DIR", "/env/runs")
	t.Setenv("HARFORGE_SYNC", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/env/runs", cfg.Run.OutputRoot)
	assert.True(t, cfg.Sync.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(*Config) {}, false},
		{"empty output root", func(c *Config) { c.Run.OutputRoot = "" }, true},
		{"negative debounce", func(c *Config) { c.Sync.DebounceMs = -1 }, true},
		{"port too large", func(c *Config) { c.Status.Port = 70000 }, true},
		{"port zero ok", func(c *Config) { c.Status.Port = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run: ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
