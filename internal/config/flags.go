package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file (.yaml, .yml or .toml)")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile  = flag.String("log-file", "", "Write logs to this file")
	flagMaxDepth = flag.Int("max-depth", 0, "Maximum node depth accepted when decoding")
	flagCharset  = flag.String("charset", "", "Legacy charset for non-UTF-8 native strings")
	flagHeapMax  = flag.Uint("heap-max", 0, "Native heap limit in bytes")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
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
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagMaxDepth > 0 {
		cfg.Transcode.MaxNodeDepth = *flagMaxDepth
	}
	if *flagCharset != "" {
		cfg.Transcode.LegacyCharset = *flagCharset
	}
	if *flagHeapMax > 0 {
		cfg.Heap.MaxSize = uint32(min(*flagHeapMax, uint(^uint32(0))))
	}
}
