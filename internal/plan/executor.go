package plan

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/rewrite"
)

// StepResult is the outcome of one configuration or of the rewrite step.
type StepResult struct {
	StepID  string             `json:"stepId"`
	Build   *names.BuildResult `json:"build,omitempty"`
	Rewrite *rewrite.Result    `json:"rewrite,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Report collects the results of a plan run.
type Report struct {
	Plan     string       `json:"plan"`
	Steps    []StepResult `json:"steps"`
	Created  int          `json:"created"`
	Modified int          `json:"modified"`
	Failed   int          `json:"failed"`
}

// Executor runs a plan against an open session.
type Executor struct {
	logger   *log.Logger
	progress bool
}

// NewExecutor creates an executor. Diagnostic lines go to stderr when verbose.
func NewExecutor(verbose bool) *Executor {
	out := io.Discard
	if verbose {
		out = os.Stderr
	}
	return &Executor{logger: log.New(out, "[plan] ", log.LstdFlags)}
}

// SetLogger replaces the diagnostic logger.
func (e *Executor) SetLogger(l *log.Logger) {
	e.logger = l
}

// SetProgress enables the per-sheet progress bar of the rewrite step.
func (e *Executor) SetProgress(on bool) {
	e.progress = on
}

// Run executes every configuration in order, then the rewrite step. A failing
// configuration is recorded and the next one runs, unless the plan says
// on_failure: stop.
func (e *Executor) Run(ctx context.Context, s *names.Session, p *Plan) (*Report, error) {
	configs, err := p.ScanConfigs()
	if err != nil {
		return nil, err
	}

	report := &Report{Plan: p.Name}
	e.logger.Printf("running plan %s (%d configurations)", p.Name, len(configs))

	for i, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		id := p.Configurations[i].ID
		if id == "" {
			id = fmt.Sprintf("config-%d", i+1)
		}
		e.logger.Printf("[%d/%d] %s: %s!%s columns %s", i+1, len(configs), id, cfg.Sheet, cfg.Range,
			strings.Join(cfg.SourceColumns, ","))

		start := time.Now()
		res, err := names.Build(s, cfg)
		step := StepResult{StepID: id, Build: res}
		if err != nil {
			step.Error = err.Error()
			report.Failed++
			report.Steps = append(report.Steps, step)
			e.logger.Printf("  %s failed: %v", id, err)
			if p.OnFailure == "stop" {
				return report, fmt.Errorf("configuration %q failed: %w", id, err)
			}
			continue
		}
		report.Created += len(res.Created)
		report.Steps = append(report.Steps, step)
		e.logger.Printf("  %d names, %d rows skipped, %d failures in %s", len(res.Created), res.SkippedRows,
			len(res.Failures), time.Since(start).Round(time.Millisecond))
	}

	if p.Rewrite == nil {
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	scope := p.Rewrite.ScopeValue()
	e.logger.Printf("rewriting formulas in %s", scope)
	res, err := rewrite.Rewrite(s, scope, rewrite.Options{DryRun: p.Rewrite.DryRun, Progress: e.progress})
	step := StepResult{StepID: "rewrite", Rewrite: res}
	if err != nil {
		step.Error = err.Error()
		report.Failed++
		report.Steps = append(report.Steps, step)
		return report, fmt.Errorf("rewrite failed: %w", err)
	}
	report.Modified = res.Modified
	report.Steps = append(report.Steps, step)
	e.logger.Printf("  %d cells modified", res.Modified)
	return report, nil
}

var interpolationPattern = regexp.MustCompile(`\$\{\{\s*([^}]+)\s*\}\}`)

// OutputPath decides where the result of running p on input is saved.
// "updated" (the default) writes <prefix><name> next to the input,
// "overwrite" writes the input itself, anything else is a path that may use
// ${{ date.today }}, ${{ input.stem }} and ${{ env.NAME }}. Relative paths are
// resolved against the input's directory.
func OutputPath(p *Plan, input, updatedPrefix string) string {
	dir, file := filepath.Split(input)
	switch p.Output {
	case "", OutputUpdated:
		return filepath.Join(dir, updatedPrefix+file)
	case OutputOverwrite:
		return input
	}

	out := interpolate(p.Output, input)
	if !filepath.IsAbs(out) {
		out = filepath.Join(dir, out)
	}
	return out
}

func interpolate(s, input string) string {
	return interpolationPattern.ReplaceAllStringFunc(s, func(match string) string {
		inner := interpolationPattern.FindStringSubmatch(match)
		if len(inner) < 2 {
			return match
		}
		expr := strings.TrimSpace(inner[1])

		switch {
		case expr == "date.today":
			return time.Now().Format("2006-01-02")
		case expr == "input.stem":
			base := filepath.Base(input)
			return strings.TrimSuffix(base, filepath.Ext(base))
		case strings.HasPrefix(expr, "env."):
			return os.Getenv(strings.TrimPrefix(expr, "env."))
		}
		return match
	})
}

// Sample returns a starter plan using the given defaults.
func Sample(sheet, rng, columns, prefix string) *Plan {
	return &Plan{
		Name:  "tax-codes",
		Sheet: sheet,
		Configurations: []Configuration{{
			ID:      "display-codes",
			Range:   rng,
			Columns: ColumnList(strings.Split(columns, ",")),
			Prefix:  prefix,
			Rule:    names.DefaultRule(prefix).String(),
		}},
		Rewrite: &RewriteStep{Scope: "all"},
		Output:  OutputUpdated,
	}
}
