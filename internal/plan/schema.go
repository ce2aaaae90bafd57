// Package plan runs a YAML-described batch of named-range configurations,
// optionally followed by a formula rewrite, against one workbook.
package plan

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/rewrite"
)

// Output modes. Any other value is a file path.
const (
	OutputUpdated   = "updated"
	OutputOverwrite = "overwrite"
)

// Plan is a complete batch definition.
type Plan struct {
	Name           string          `yaml:"name" json:"name"`
	Sheet          string          `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	Configurations []Configuration `yaml:"configurations" json:"configurations"`
	Rewrite        *RewriteStep    `yaml:"rewrite,omitempty" json:"rewrite,omitempty"`
	Output         string          `yaml:"output,omitempty" json:"output,omitempty"`
	OnFailure      string          `yaml:"on_failure,omitempty" json:"onFailure,omitempty"`
}

// Configuration is one scan window. Sheet overrides the plan's sheet.
type Configuration struct {
	ID      string     `yaml:"id,omitempty" json:"id,omitempty"`
	Sheet   string     `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	Range   string     `yaml:"range" json:"range"`
	Columns ColumnList `yaml:"columns" json:"columns"`
	Prefix  string     `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Rule    string     `yaml:"rule,omitempty" json:"rule,omitempty"`
}

// RewriteStep runs the formula rewriter after all configurations. Scope is
// "all" or a sheet name.
type RewriteStep struct {
	Scope  string `yaml:"scope,omitempty" json:"scope,omitempty"`
	DryRun bool   `yaml:"dry_run,omitempty" json:"dryRun,omitempty"`
}

// ScopeValue converts the step's scope into a rewrite.Scope.
func (r *RewriteStep) ScopeValue() rewrite.Scope {
	if r == nil || r.Scope == "" || strings.EqualFold(r.Scope, "all") {
		return rewrite.AllSheets
	}
	return rewrite.Scope{Sheet: r.Scope}
}

// ColumnList accepts either a YAML sequence ([J, K]) or a comma-separated
// string ("J,K").
type ColumnList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *ColumnList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*c = nil
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*c = append(*c, part)
			}
		}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*c = list
		return nil
	default:
		return fmt.Errorf("line %d: columns must be a list like [J, K] or a string like \"J,K\"", node.Line)
	}
}

// LoadPlan reads and parses a plan YAML file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plan file not found: %s — check that the path is correct", path)
		}
		return nil, fmt.Errorf("could not read plan file %s: %w", path, err)
	}

	return ParsePlan(data)
}

// ParsePlan parses a plan from YAML bytes.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid plan YAML: %w", err)
	}

	if err := validatePlan(&p); err != nil {
		return nil, err
	}

	return &p, nil
}

// Marshal renders the plan as YAML.
func (p *Plan) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// ScanConfigs validates every configuration into a names.ScanConfig.
func (p *Plan) ScanConfigs() ([]names.ScanConfig, error) {
	configs := make([]names.ScanConfig, 0, len(p.Configurations))
	for i, c := range p.Configurations {
		cfg, err := c.scanConfig(p.Sheet)
		if err != nil {
			return nil, fmt.Errorf("configuration %s: %w", c.label(i), err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (c Configuration) scanConfig(defaultSheet string) (names.ScanConfig, error) {
	sheet := c.Sheet
	if sheet == "" {
		sheet = defaultSheet
	}
	rule := names.DefaultRule(c.Prefix)
	if c.Rule != "" {
		r, err := names.ParseRule(c.Rule)
		if err != nil {
			return names.ScanConfig{}, &names.ConfigError{Field: "rule", Err: err}
		}
		rule = r
	}
	return names.NewScanConfig(sheet, c.Range, c.Columns, c.Prefix, rule)
}

func (c Configuration) label(i int) string {
	if c.ID != "" {
		return fmt.Sprintf("%q", c.ID)
	}
	return fmt.Sprintf("%d", i+1)
}

func validatePlan(p *Plan) error {
	if p.Name == "" {
		return fmt.Errorf("plan is missing a 'name' field")
	}

	if len(p.Configurations) == 0 && p.Rewrite == nil {
		return fmt.Errorf("plan %q has no configurations and no rewrite step", p.Name)
	}

	seen := make(map[string]bool)
	for i, c := range p.Configurations {
		if c.ID != "" {
			if seen[c.ID] {
				return fmt.Errorf("duplicate configuration ID %q — each configuration must have a unique ID", c.ID)
			}
			seen[c.ID] = true
		}
		if c.Sheet == "" && p.Sheet == "" {
			return fmt.Errorf("configuration %s has no sheet — set 'sheet' on the plan or the configuration", c.label(i))
		}
	}
	if _, err := p.ScanConfigs(); err != nil {
		return err
	}

	switch p.OnFailure {
	case "", "skip", "stop":
	default:
		return fmt.Errorf("invalid on_failure %q — use 'skip' or 'stop'", p.OnFailure)
	}

	return nil
}
