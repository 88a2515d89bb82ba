package config

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/odvcencio/swhid/pkg/dirtree"
	"github.com/odvcencio/swhid/pkg/logger"
	"github.com/odvcencio/swhid/pkg/object"
)

// LoggerOptions converts the logging section for logger.New.
func (c LoggingConfig) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		MaxSize:    c.MaxSize,
		MaxAge:     c.MaxAge,
		MaxBackups: c.MaxBackups,
	}
}

// ComposeOptions builds directory composition options from the walk and
// hashes sections, reading the ignore file from fs when one is set.
func (c *Config) ComposeOptions(fs afero.Fs, log logrus.FieldLogger) (dirtree.Options, error) {
	opts := dirtree.Options{
		Exclude:          append([]string(nil), c.Walk.Exclude...),
		FollowSymlinks:   c.Walk.FollowSymlinks,
		MaxContentLength: c.Walk.MaxContentLength,
		Algorithms:       append([]string(nil), c.Hashes.Algorithms...),
		Logger:           log,
	}
	if c.Walk.IgnoreFile != "" {
		rules, err := dirtree.ReadIgnoreFile(fs, c.Walk.IgnoreFile)
		if err != nil {
			return dirtree.Options{}, err
		}
		opts.Ignore = rules
	}
	return opts, nil
}

// OpenStore returns the configured object store, or nil when storing is
// disabled.
func (c *Config) OpenStore() *object.Store {
	if c.Store.Path == "" {
		return nil
	}
	return object.NewStore(c.Store.Path)
}
