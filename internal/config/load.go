package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	// explicit path takes priority
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile loads configuration from a single YAML file on top of the defaults, ignoring flags.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that the YAML types cannot express.
func (c *Config) Validate() error {
	switch c.Renderer.Backend {
	case BackendMemory, BackendWGPU:
	default:
		return fmt.Errorf("invalid renderer backend %q: expected %q or %q", c.Renderer.Backend, BackendMemory, BackendWGPU)
	}
	if c.Loader.Workers < 0 {
		return fmt.Errorf("invalid loader workers %d: must be >= 0", c.Loader.Workers)
	}
	if c.Loader.MaxAnisotropy < 1 || c.Loader.MaxAnisotropy > 16 {
		return fmt.Errorf("invalid max anisotropy %d: must be in [1, 16]", c.Loader.MaxAnisotropy)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./oxy-assets.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "OxyAssets")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "OxyAssets")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "oxy-assets")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "oxy-assets")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
