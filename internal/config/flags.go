package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagBackend   = flag.String("backend", "", "Graphics backend (memory|wgpu)")
	flagWorkers   = flag.Int("workers", -1, "CPU workers per import stage (0 = GOMAXPROCS)")
	flagNoMipmaps = flag.Bool("no-mipmaps", false, "Disable CPU mip chain generation")
	flagLogFile   = flag.String("log-file", "", "Write logs to this file as well")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagBackend != "" {
		cfg.Renderer.Backend = *flagBackend
	}
	if *flagWorkers >= 0 {
		cfg.Loader.Workers = *flagWorkers
	}
	if *flagNoMipmaps {
		cfg.Loader.GenerateMipmaps = false
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
