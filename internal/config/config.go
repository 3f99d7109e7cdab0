// Package config handles oxy-assets configuration loading and management.
package config

// Config holds all asset pipeline settings.
type Config struct {
	Loader   LoaderConfig   `yaml:"loader"`
	Renderer RendererConfig `yaml:"renderer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoaderConfig holds import pipeline settings.
type LoaderConfig struct {
	Workers         int  `yaml:"workers"` // 0 = GOMAXPROCS
	GenerateMipmaps bool `yaml:"generate_mipmaps"`
	MaxAnisotropy   int  `yaml:"max_anisotropy"`

	GenerateNormals  bool `yaml:"generate_normals"`
	GenerateTangents bool `yaml:"generate_tangents"`
}

// RendererConfig holds graphics device settings.
type RendererConfig struct {
	Backend         string `yaml:"backend"` // memory | wgpu
	PowerPreference string `yaml:"power_preference"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

const (
	BackendMemory = "memory"
	BackendWGPU   = "wgpu"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Loader: LoaderConfig{
			Workers:         0,
			GenerateMipmaps: true,
			MaxAnisotropy:   1,
		},
		Renderer: RendererConfig{
			Backend:         BackendMemory,
			PowerPreference: "high-performance",
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}
