package config

import (
	"github.com/Carmen-Shannon/oxy-assets/engine/loader"
	"github.com/Carmen-Shannon/oxy-assets/engine/renderer"
	"github.com/Carmen-Shannon/oxy-assets/internal/logger"
	"github.com/cogentcore/webgpu/wgpu"
)

// LoaderOptions converts the loader section into loader builder options.
func (c *Config) LoaderOptions() []loader.LoaderBuilderOption {
	return []loader.LoaderBuilderOption{
		loader.WithWorkers(c.Loader.Workers),
		loader.WithMipmaps(c.Loader.GenerateMipmaps),
		loader.WithMaxAnisotropy(uint16(c.Loader.MaxAnisotropy)),
		loader.WithGenerateNormals(c.Loader.GenerateNormals),
		loader.WithGenerateTangents(c.Loader.GenerateTangents),
	}
}

// DeviceOptions converts the renderer section into device builder options.
func (c *Config) DeviceOptions() []renderer.DeviceBuilderOption {
	pref := wgpu.PowerPreferenceHighPerformance
	if c.Renderer.PowerPreference == "low-power" {
		pref = wgpu.PowerPreferenceLowPower
	}
	return []renderer.DeviceBuilderOption{
		renderer.WithLabel("oxy-assets"),
		renderer.WithPowerPreference(pref),
	}
}

// LogFileConfig converts the logging section into a rotating file config.
// The Path is empty when no log file is configured.
func (c *Config) LogFileConfig() logger.FileConfig {
	if c.Logging.LogFile == "" {
		return logger.FileConfig{}
	}
	fc := logger.DefaultFileConfig(c.Logging.LogFile)
	if c.Logging.MaxSizeMB > 0 {
		fc.MaxSizeMB = c.Logging.MaxSizeMB
	}
	if c.Logging.MaxBackups > 0 {
		fc.MaxBackups = c.Logging.MaxBackups
	}
	if c.Logging.MaxAgeDays > 0 {
		fc.MaxAgeDays = c.Logging.MaxAgeDays
	}
	return fc
}
