// Package config manages namekit defaults from ~/.namekit/config.yaml and
// NAMEKIT_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Built-in defaults. They match the workbook layout namekit was written for.
const (
	DefaultSheet        = "Tax Calculation"
	DefaultPrefix       = "display_code_"
	DefaultRange        = "L200:L408"
	DefaultColumns      = "J,K"
	DefaultOutputMode   = "updated"
	DefaultOutputPrefix = "updated_"
	DefaultDebounceMs   = 500
)

// Config holds the application configuration.
type Config struct {
	Defaults struct {
		Sheet   string `mapstructure:"sheet"`
		Prefix  string `mapstructure:"prefix"`
		Range   string `mapstructure:"range"`
		Columns string `mapstructure:"columns"`
		Rule    string `mapstructure:"rule"`
	} `mapstructure:"defaults"`
	Output struct {
		Mode   string `mapstructure:"mode"`
		Prefix string `mapstructure:"prefix"`
		Color  bool   `mapstructure:"color"`
	} `mapstructure:"output"`
	Journal struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"journal"`
	Watch struct {
		DebounceMs int `mapstructure:"debounce_ms"`
	} `mapstructure:"watch"`
}

// Load reads the configuration from ~/.namekit/config.yaml and environment
// variables such as NAMEKIT_DEFAULTS_SHEET.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir())

	setDefaults()

	viper.SetEnvPrefix("NAMEKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (non-fatal if missing)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = JournalPath()
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("defaults.sheet", DefaultSheet)
	viper.SetDefault("defaults.prefix", DefaultPrefix)
	viper.SetDefault("defaults.range", DefaultRange)
	viper.SetDefault("defaults.columns", DefaultColumns)
	viper.SetDefault("defaults.rule", "")
	viper.SetDefault("output.mode", DefaultOutputMode)
	viper.SetDefault("output.prefix", DefaultOutputPrefix)
	viper.SetDefault("output.color", true)
	viper.SetDefault("journal.enabled", true)
	viper.SetDefault("journal.path", "")
	viper.SetDefault("watch.debounce_ms", DefaultDebounceMs)
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".namekit"
	}
	return filepath.Join(home, ".namekit")
}

// JournalPath returns the default journal location.
func JournalPath() string {
	return filepath.Join(configDir(), "journal.jsonl")
}

// HistoryPath returns the readline history file used by the menu.
func HistoryPath() string {
	return filepath.Join(configDir(), "menu_history")
}

// OutputFor decides where a command saves input. An explicit path wins;
// otherwise output.mode "overwrite" writes input itself and anything else
// writes <output.prefix><name> next to it.
func OutputFor(input, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if viper.GetString("output.mode") == "overwrite" {
		return input
	}
	prefix := viper.GetString("output.prefix")
	if prefix == "" {
		prefix = DefaultOutputPrefix
	}
	dir, file := filepath.Split(input)
	return filepath.Join(dir, prefix+file)
}
