// Package config loads swhid settings from a config file, SWHID_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// SWHID_WALK_FOLLOW_SYMLINKS=true.
const EnvPrefix = "SWHID"

// Config is the complete swhid configuration.
//
// Sources, highest precedence first:
//  1. CLI flags
//  2. Environment variables (SWHID_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" toml:"logging"`
	Walk    WalkConfig    `mapstructure:"walk" yaml:"walk" toml:"walk"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" toml:"output"`
	Hashes  HashesConfig  `mapstructure:"hashes" yaml:"hashes" toml:"hashes"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store" toml:"store"`
}

// LoggingConfig controls log output. Output is stderr, stdout, an empty
// string for no logging, or a file path rotated by size.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level" toml:"level" validate:"required,oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" yaml:"format" toml:"format" validate:"required,oneof=text json"`
	Output     string `mapstructure:"output" yaml:"output" toml:"output"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size" toml:"max_size" validate:"gte=0"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age" toml:"max_age" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" toml:"max_backups" validate:"gte=0"`
}

// WalkConfig controls how directories are read.
type WalkConfig struct {
	// Exclude holds name patterns; an entry is skipped when its name
	// contains any of them. Dot-names are always skipped.
	Exclude []string `mapstructure:"exclude" yaml:"exclude" toml:"exclude"`
	// IgnoreFile names a gitignore-style rule file applied to paths
	// relative to the composed root.
	IgnoreFile     string `mapstructure:"ignore_file" yaml:"ignore_file" toml:"ignore_file"`
	FollowSymlinks bool   `mapstructure:"follow_symlinks" yaml:"follow_symlinks" toml:"follow_symlinks"`
	// MaxContentLength marks larger files absent. Zero means no limit.
	MaxContentLength int64 `mapstructure:"max_content_length" yaml:"max_content_length" toml:"max_content_length" validate:"gte=0"`
}

// OutputConfig controls how identifiers are printed.
type OutputConfig struct {
	Format    string `mapstructure:"format" yaml:"format" toml:"format" validate:"required,oneof=text json yaml cbor"`
	Recursive bool   `mapstructure:"recursive" yaml:"recursive" toml:"recursive"`
}

// HashesConfig lists content checksums computed on top of the defaults.
type HashesConfig struct {
	Algorithms []string `mapstructure:"algorithms" yaml:"algorithms" toml:"algorithms" validate:"dive,oneof=sha1 sha1_git sha256 blake2s256 blake3"`
}

// StoreConfig names where computed objects are written. Path is a
// git-layout loose object directory; Pack is a pack file written for
// each composed directory. Empty disables either.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path" toml:"path"`
	Pack string `mapstructure:"pack" yaml:"pack" toml:"pack"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"log-level":          "logging.level",
	"log-format":         "logging.format",
	"exclude":            "walk.exclude",
	"ignore-file":        "walk.ignore_file",
	"follow-symlinks":    "walk.follow_symlinks",
	"max-content-length": "walk.max_content_length",
	"format":             "output.format",
	"recursive":          "output.recursive",
	"hash":               "hashes.algorithms",
	"store":              "store.path",
	"pack":               "store.pack",
}

// Load reads the configuration. An empty configPath searches the default
// location and tolerates a missing file; an explicit path must exist.
// Flags in flags that are named in flagKeys override every other source;
// flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}
	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		trimSliceHook,
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Environment overrides only apply to keys viper knows about.
	for key, value := range defaultValues() {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(ConfigDir())
	v.SetConfigName("config")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func readConfigFile(v *viper.Viper, configPath string) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if configPath == "" && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("read config file: %w", err)
}

// trimSliceHook drops blanks left by splitting "a, b," style values.
func trimSliceHook(_, to reflect.Type, data any) (any, error) {
	in, ok := data.([]string)
	if !ok || to.Kind() != reflect.Slice {
		return data, nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// ConfigDir returns $XDG_CONFIG_HOME/swhid, falling back to
// ~/.config/swhid and finally the current directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "swhid")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "swhid")
}
