package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// AppName names the config file and the config directory.
	AppName = "dmutils"
	// EnvPrefix prefixes environment overrides, e.g. DMUTILS_LOG_LEVEL.
	EnvPrefix = "DMUTILS"
)

// Config holds every setting the application reads.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	// LogFile, when set, also writes JSON logs to a rotating file.
	LogFile string `mapstructure:"log_file"`

	// Workers caps concurrent calls per level when running call files.
	Workers int `mapstructure:"workers"`
	// Modules restricts the registered modules by name. Empty means all.
	Modules []string `mapstructure:"modules"`

	Listen      string        `mapstructure:"listen"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Workers:     10,
		Listen:      ":8080",
		HTTPTimeout: 60 * time.Second,
	}
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Validate checks the enumerated and numeric settings.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(validLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("invalid log-level %q: must be one of %s", c.LogLevel, strings.Join(validLevels, ", ")))
	}
	if !slices.Contains(validFormats, c.LogFormat) {
		errs = append(errs, fmt.Errorf("invalid log-format %q: must be one of %s", c.LogFormat, strings.Join(validFormats, ", ")))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("invalid workers %d: must not be negative", c.Workers))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid http-timeout %s: must be positive", c.HTTPTimeout))
	}
	return errors.Join(errs...)
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFile is an explicit config file. It must exist.
	ConfigFile string
	// SearchDirs are searched for dmutils.{yaml,toml,json} when ConfigFile
	// is empty. Nil means the working directory and the user config dir.
	SearchDirs []string
	// Flags are bound by name; "log-level" overrides log_level.
	Flags *pflag.FlagSet
}

// Load resolves the configuration. It returns the config file it used, or ""
// when none was found.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("listen", defaults.Listen)
	v.SetDefault("http_timeout", defaults.HTTPTimeout)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// Keys without a default are only unmarshalled when viper knows them.
	for _, key := range knownKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, "", fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, "", fmt.Errorf("config file not found: %w", err)
		}
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName(AppName)
		dirs := opts.SearchDirs
		if dirs == nil {
			dirs = defaultSearchDirs()
		}
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !slices.Contains(knownKeys, key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
			}
		})
		if bindErr != nil {
			return nil, "", bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, v.ConfigFileUsed(), nil
}

var knownKeys = []string{"log_level", "log_format", "log_file", "workers", "modules", "listen", "http_timeout"}

func defaultSearchDirs() []string {
	dirs := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, AppName))
	}
	return dirs
}
