// Package config loads coordinator settings from the config file, the
// environment, and built-in defaults. Command-line flags override all of
// these; see cmd/evince-synctex.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the coordinator.
type Config struct {
	// Editor is the default editor command template (%f, %l, %c). The
	// positional EDITOR_COMMAND argument overrides it.
	Editor string `mapstructure:"editor"`

	// Viewer is the command used to open the PDF when no running viewer
	// has it. The document URI is appended.
	Viewer string `mapstructure:"viewer"`

	// BuildCommand is the continuous build tool invocation; the source
	// file is appended.
	BuildCommand string `mapstructure:"build_command"`

	// BuildOnceCommand is the single-run build used in watch mode.
	BuildOnceCommand string `mapstructure:"build_once_command"`

	// Watch selects the internal file watcher over the continuous build
	// tool.
	Watch bool `mapstructure:"watch"`

	// Timeout bounds the wait for a launched viewer to register.
	Timeout time.Duration `mapstructure:"timeout"`

	// PollInterval is how often the registry is re-checked while waiting.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// ColumnDefault, when non-empty, is substituted for %c if the viewer
	// supplies no column. Empty means a %c template without a column is
	// an error.
	ColumnDefault string `mapstructure:"column_default"`

	// LogFile, when non-empty, sends logs to a rotating file instead of
	// stderr.
	LogFile string `mapstructure:"log_file"`
}

// Load reads $XDG_CONFIG_HOME/evince-synctex/config.yaml (if present) and
// EVINCE_SYNCTEX_* environment variables on top of the defaults. A missing
// config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$XDG_CONFIG_HOME/evince-synctex")
	v.AddConfigPath("$HOME/.config/evince-synctex")

	v.SetEnvPrefix("EVINCE_SYNCTEX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only surfaces env values for keys viper already knows;
	// keys without a default must be bound explicitly or Unmarshal skips
	// them.
	for _, key := range []string{"editor", "watch", "column_default", "log_file"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	v.SetDefault("viewer", "evince")
	v.SetDefault("build_command", "latexmk -pvc -pdf -interaction=nonstopmode")
	v.SetDefault("build_once_command", "latexmk -pdf -interaction=nonstopmode")
	v.SetDefault("timeout", "10s")
	v.SetDefault("poll_interval", "500ms")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the coordinator cannot run with.
func (c *Config) Validate() error {
	if c.Viewer == "" {
		return fmt.Errorf("viewer command cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.PollInterval > c.Timeout {
		return fmt.Errorf("poll_interval %s exceeds timeout %s", c.PollInterval, c.Timeout)
	}
	if c.ColumnDefault != "" {
		if n, err := strconv.Atoi(c.ColumnDefault); err != nil || n < 0 {
			return fmt.Errorf("column_default %q is not a non-negative integer", c.ColumnDefault)
		}
	}
	return nil
}
