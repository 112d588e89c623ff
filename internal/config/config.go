// Package config loads dbdeck application settings.
//
// Precedence, highest first: explicitly set flags, DBDECK_* environment
// variables, the YAML config file, built-in defaults. Nested keys use "__"
// in environment variable names, so DBDECK_LOG__LEVEL sets log.level.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/filestore"
	"github.com/koustreak/dbdeck/internal/history"
	"github.com/koustreak/dbdeck/internal/logger"
	"github.com/koustreak/dbdeck/internal/profile"
	"github.com/spf13/pflag"
)

const (
	// DefaultFile is looked up in the working directory when no config
	// file is given.
	DefaultFile = "dbdeck.yaml"

	// EnvPrefix starts every environment variable the loader reads.
	EnvPrefix = "DBDECK_"

	DefaultAddr = "127.0.0.1:8080"
)

// Config holds all application settings.
type Config struct {
	Log     LogConfig        `koanf:"log"`
	Server  ServerConfig     `koanf:"server"`
	History HistoryConfig    `koanf:"history"`
	Export  filestore.Config `koanf:"export"`

	// Profiles is the path of the connection profiles file.
	Profiles string `koanf:"profiles"`

	// File is the config file that was read, empty when none was.
	File string `koanf:"-"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type HistoryConfig struct {
	Size int `koanf:"size"`
}

// flagKeys maps flag names to config keys. Flags not listed here, such as the
// connection flags, are not configuration.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"profiles":   "profiles",
	"addr":       "server.addr",
}

func defaults() map[string]any {
	exp := filestore.DefaultConfig()
	return map[string]any{
		"log.level":               "info",
		"log.format":              "console",
		"server.addr":             DefaultAddr,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "5m",
		"server.shutdown_timeout": "10s",
		"history.size":            history.DefaultSize,
		"export.provider":         string(exp.Provider),
		"export.dir":              exp.Dir,
		"profiles":                defaultProfilesPath(),
	}
}

func defaultProfilesPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return profile.DefaultFile
	}
	return filepath.Join(dir, "dbdeck", profile.DefaultFile)
}

// Load builds the configuration. An explicit cfgFile must exist; otherwise
// DefaultFile is read when present. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidConfig, "failed to load defaults", err)
	}

	used := cfgFile
	if used == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			used = DefaultFile
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidConfig, "error reading config file "+used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidConfig, "failed to load env vars", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidConfig, "failed to load flags", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidConfig, "unable to decode config", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns DBDECK_EXPORT__ACCESS_KEY into export.access_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "console":
	default:
		return errs.Newf(errs.ErrKindInvalidConfig, "unknown log format %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errs.Newf(errs.ErrKindInvalidConfig, "unknown log level %q", c.Log.Level)
	}
	if c.History.Size < 0 {
		return errs.Newf(errs.ErrKindInvalidConfig, "history size %d is negative", c.History.Size)
	}
	return c.Export.Validate()
}

// Logger returns the logger configuration for these settings.
func (c *Config) Logger() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	return lc
}
