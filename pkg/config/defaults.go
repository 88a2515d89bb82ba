package config

import "strings"

// Defaults, also used as flag defaults by the CLI.
const (
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultLogOutput    = "stderr"
	DefaultOutputFormat = "text"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// defaultValues are registered with viper so that SWHID_* environment
// variables resolve for every key.
func defaultValues() map[string]any {
	return map[string]any{
		"logging.level":           DefaultLogLevel,
		"logging.format":          DefaultLogFormat,
		"logging.output":          DefaultLogOutput,
		"logging.max_size":        0,
		"logging.max_age":         0,
		"logging.max_backups":     0,
		"walk.exclude":            []string{},
		"walk.ignore_file":        "",
		"walk.follow_symlinks":    false,
		"walk.max_content_length": int64(0),
		"output.format":           DefaultOutputFormat,
		"output.recursive":        false,
		"hashes.algorithms":       []string{},
		"store.path":              "",
		"store.pack":              "",
	}
}

// ApplyDefaults fills zero fields and normalizes case. Logging.Output is
// left alone when the other logging fields are set so that an explicit
// empty output can silence logs.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)

	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultOutputFormat
	}
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)

	for i, algo := range cfg.Hashes.Algorithms {
		cfg.Hashes.Algorithms[i] = strings.ToLower(strings.TrimSpace(algo))
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" && cfg.Format == "" && cfg.Output == "" {
		cfg.Output = DefaultLogOutput
	}
	if cfg.Level == "" {
		cfg.Level = DefaultLogLevel
	}
	cfg.Level = strings.ToLower(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = DefaultLogFormat
	}
	cfg.Format = strings.ToLower(cfg.Format)
}
