package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0, cfg.Loader.Workers)
	assert.True(t, cfg.Loader.GenerateMipmaps)
	assert.Equal(t, 1, cfg.Loader.MaxAnisotropy)
	assert.Equal(t, BackendMemory, cfg.Renderer.Backend)
	assert.Equal(t, "high-performance", cfg.Renderer.PowerPreference)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.LogFile)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
loader:
  workers: 4
  generate_mipmaps: false
  max_anisotropy: 8
renderer:
  backend: wgpu
logging:
  level: debug
  log_file: /tmp/oxy.log
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := LoadFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Loader.Workers)
	assert.False(t, cfg.Loader.GenerateMipmaps)
	assert.Equal(t, 8, cfg.Loader.MaxAnisotropy)
	assert.Equal(t, BackendWGPU, cfg.Renderer.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/oxy.log", cfg.Logging.LogFile)

	// untouched keys keep their defaults
	assert.Equal(t, "high-performance", cfg.Renderer.PowerPreference)
	assert.Equal(t, 50, cfg.Logging.MaxSizeMB)
}

func TestLoadFileErrors(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(tmpDir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		p := filepath.Join(tmpDir, "bad.yaml")
		require.NoError(t, os.WriteFile(p, []byte("loader: [unclosed"), 0644))
		_, err := LoadFile(p)
		assert.Error(t, err)
	})

	t.Run("bad backend", func(t *testing.T) {
		p := filepath.Join(tmpDir, "backend.yaml")
		require.NoError(t, os.WriteFile(p, []byte("renderer:\n  backend: vulkan\n"), 0644))
		_, err := LoadFile(p)
		assert.ErrorContains(t, err, "invalid renderer backend")
	})

	t.Run("bad anisotropy", func(t *testing.T) {
		p := filepath.Join(tmpDir, "aniso.yaml")
		require.NoError(t, os.WriteFile(p, []byte("loader:\n  max_anisotropy: 64\n"), 0644))
		_, err := LoadFile(p)
		assert.ErrorContains(t, err, "max anisotropy")
	})
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Loader.Workers = 2
	cfg.Renderer.Backend = BackendWGPU
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLogFileConfig(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.LogFileConfig().Path)

	cfg.Logging.LogFile = "assets.log"
	cfg.Logging.MaxBackups = 9
	fc := cfg.LogFileConfig()
	assert.Equal(t, "assets.log", fc.Path)
	assert.Equal(t, 9, fc.MaxBackups)
	assert.Equal(t, 50, fc.MaxSizeMB)
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	assert.NotEmpty(t, dir)
	assert.Contains(t, strings.ToLower(dir), "oxy")
}
