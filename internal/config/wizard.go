package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/klytics/namekit/internal/cellref"
	"github.com/klytics/namekit/internal/names"
)

// ConfigIssue represents a validation finding.
type ConfigIssue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix"`
}

// Wizard runs the interactive setup wizard, writing prompts to out.
// If reader is nil, reads from os.Stdin.
func Wizard(reader io.Reader, out io.Writer) error {
	if reader == nil {
		reader = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	scanner := bufio.NewScanner(reader)
	ask := func(prompt, def string) string {
		fmt.Fprintf(out, "  %s (default: '%s'): ", prompt, def)
		if !scanner.Scan() {
			return def
		}
		if v := strings.TrimSpace(scanner.Text()); v != "" {
			return v
		}
		return def
	}

	fmt.Fprintln(out, "namekit Setup Wizard")
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("-", 48))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Step 1/3: Workbook layout")
	viper.Set("defaults.sheet", ask("Sheet holding the tax codes", Get("defaults.sheet")))
	viper.Set("defaults.range", ask("Target range", Get("defaults.range")))
	cols := Get("defaults.columns")
	for attempt := 0; attempt < 3; attempt++ {
		v := ask("Columns to search for codes", cols)
		if _, err := cellref.ParseColumnList(v); err != nil {
			fmt.Fprintf(out, "  %v\n", err)
			continue
		}
		cols = v
		break
	}
	viper.Set("defaults.columns", cols)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Step 2/3: Names")
	viper.Set("defaults.prefix", ask("Prefix for new names", Get("defaults.prefix")))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Step 3/3: Saving")
	mode := strings.ToLower(ask("Save mode (updated/overwrite)", Get("output.mode")))
	if mode != "overwrite" {
		mode = DefaultOutputMode
	}
	viper.Set("output.mode", mode)
	fmt.Fprintln(out)

	if err := SaveConfig(); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}

	fmt.Fprintln(out, strings.Repeat("-", 48))
	fmt.Fprintln(out, "namekit is ready!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Quick start:")
	fmt.Fprintln(out, "  namekit menu book.xlsx")
	fmt.Fprintln(out, "  namekit names create book.xlsx")
	fmt.Fprintln(out, "  namekit formulas rewrite book.xlsx --all")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Config file: %s\n", ConfigPath())

	return nil
}

// WizardNonInteractive writes the built-in defaults (no user input).
func WizardNonInteractive() error {
	setDefaults()
	return SaveConfig()
}

// Validate checks that the configured defaults would be accepted by the
// commands that use them.
func Validate() []ConfigIssue {
	var issues []ConfigIssue

	if _, _, err := cellref.ParseRange(Get("defaults.range")); err != nil {
		issues = append(issues, ConfigIssue{
			Key:      "defaults.range",
			Severity: "error",
			Message:  err.Error(),
			Fix:      "namekit config set defaults.range L200:L408",
		})
	}
	if _, err := cellref.ParseColumnList(Get("defaults.columns")); err != nil {
		issues = append(issues, ConfigIssue{
			Key:      "defaults.columns",
			Severity: "error",
			Message:  err.Error(),
			Fix:      "namekit config set defaults.columns J,K",
		})
	}
	if rule := Get("defaults.rule"); rule != "" {
		if _, err := names.ParseRule(rule); err != nil {
			issues = append(issues, ConfigIssue{
				Key:      "defaults.rule",
				Severity: "error",
				Message:  err.Error(),
				Fix:      "namekit config set defaults.rule tax-code",
			})
		}
	} else {
		issues = append(issues, ConfigIssue{
			Key:      "defaults.rule",
			Severity: "info",
			Message:  "no rule set — tax-code is used with a prefix, any without",
		})
	}
	switch Get("output.mode") {
	case "updated", "overwrite":
	default:
		issues = append(issues, ConfigIssue{
			Key:      "output.mode",
			Severity: "warning",
			Message:  fmt.Sprintf("output mode %q is not 'updated' or 'overwrite'; 'updated' is used", Get("output.mode")),
			Fix:      "namekit config set output.mode updated",
		})
	}
	if strings.ContainsAny(Get("output.prefix"), `/\`) {
		issues = append(issues, ConfigIssue{
			Key:      "output.prefix",
			Severity: "error",
			Message:  "output prefix must not contain path separators",
			Fix:      "namekit config set output.prefix updated_",
		})
	}

	return issues
}

// ToEnv returns the config values as NAMEKIT_* environment variables.
func ToEnv() map[string]string {
	env := make(map[string]string)
	for _, key := range viper.AllKeys() {
		if v := viper.GetString(key); v != "" {
			env["NAMEKIT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = v
		}
	}
	return env
}

// Set sets a config value and saves to disk.
func Set(key, value string) error {
	viper.Set(key, value)
	return SaveConfig()
}

// Get retrieves a config value.
func Get(key string) string {
	return viper.GetString(key)
}

// ResetConfig deletes the config file and restores the built-in defaults.
func ResetConfig() error {
	path := ConfigPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete config: %w", err)
	}
	viper.Set("defaults.sheet", DefaultSheet)
	viper.Set("defaults.prefix", DefaultPrefix)
	viper.Set("defaults.range", DefaultRange)
	viper.Set("defaults.columns", DefaultColumns)
	viper.Set("defaults.rule", "")
	viper.Set("output.mode", DefaultOutputMode)
	viper.Set("output.prefix", DefaultOutputPrefix)
	return nil
}

// SaveConfig writes the current config to ~/.namekit/config.yaml.
func SaveConfig() error {
	dir := configDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}

	os.Chmod(path, 0600)
	return nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// ShowConfig returns a formatted string of the current configuration.
func ShowConfig() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Config: %s\n\n", ConfigPath()))

	sb.WriteString("Defaults\n")
	sb.WriteString(fmt.Sprintf("  sheet:     %s\n", Get("defaults.sheet")))
	sb.WriteString(fmt.Sprintf("  range:     %s\n", Get("defaults.range")))
	sb.WriteString(fmt.Sprintf("  columns:   %s\n", Get("defaults.columns")))
	sb.WriteString(fmt.Sprintf("  prefix:    %s\n", Get("defaults.prefix")))
	rule := Get("defaults.rule")
	if rule == "" {
		rule = "(by prefix)"
	}
	sb.WriteString(fmt.Sprintf("  rule:      %s\n", rule))
	sb.WriteString("\n")

	sb.WriteString("Output\n")
	sb.WriteString(fmt.Sprintf("  mode:      %s\n", Get("output.mode")))
	sb.WriteString(fmt.Sprintf("  prefix:    %s\n", Get("output.prefix")))
	sb.WriteString("\n")

	sb.WriteString("Journal\n")
	sb.WriteString(fmt.Sprintf("  enabled:   %v\n", viper.GetBool("journal.enabled")))
	path := Get("journal.path")
	if path == "" {
		path = JournalPath()
	}
	sb.WriteString(fmt.Sprintf("  path:      %s\n", path))
	sb.WriteString("\n")

	return sb.String()
}

// Keys lists the known configuration keys, sorted.
func Keys() []string {
	setDefaults()
	keys := viper.AllKeys()
	sort.Strings(keys)
	return keys
}
