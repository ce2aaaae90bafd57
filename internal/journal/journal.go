// Package journal keeps an append-only record of the names namekit created and
// the formulas it rewrote, one JSON object per line.
package journal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/rewrite"
)

// Entry kinds.
const (
	KindName    = "name"
	KindFormula = "formula"
	KindSave    = "save"
)

// Entry is one journal line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Machine   string    `json:"machine,omitempty"`
	Command   string    `json:"command"`
	Kind      string    `json:"kind"`
	Workbook  string    `json:"workbook"`
	Name      string    `json:"name,omitempty"`
	RefersTo  string    `json:"refers_to,omitempty"`
	Replaced  bool      `json:"replaced,omitempty"`
	Sheet     string    `json:"sheet,omitempty"`
	Cell      string    `json:"cell,omitempty"`
	Before    string    `json:"before,omitempty"`
	After     string    `json:"after,omitempty"`
	Output    string    `json:"output,omitempty"`
}

// Journal appends entries to a file.
type Journal struct {
	FilePath string
	Enabled  bool
}

// New creates a Journal. A disabled journal or an empty path makes every
// write a no-op.
func New(filePath string, enabled bool) *Journal {
	return &Journal{FilePath: filePath, Enabled: enabled}
}

// Append writes entries. Best-effort: failures never fail the command.
func (j *Journal) Append(_ context.Context, entries ...Entry) error {
	if j == nil || !j.Enabled || j.FilePath == "" || len(entries) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(j.FilePath), 0755); err != nil {
		return nil
	}

	f, err := os.OpenFile(j.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	defer f.Close()

	host, _ := os.Hostname()
	now := time.Now()
	for _, e := range entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		if e.Machine == "" {
			e.Machine = host
		}
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		_, _ = f.Write(append(data, '\n'))
	}
	return nil
}

// FromBuild turns the names registered by a Build run into entries.
func FromBuild(command, workbook string, res *names.BuildResult) []Entry {
	if res == nil {
		return nil
	}
	replaced := make(map[string]bool, len(res.Replaced))
	for _, n := range res.Replaced {
		replaced[n] = true
	}
	entries := make([]Entry, 0, len(res.Created))
	for _, a := range res.Created {
		entries = append(entries, Entry{
			Command:  command,
			Kind:     KindName,
			Workbook: workbook,
			Name:     a.Name,
			RefersTo: a.RefersTo,
			Replaced: replaced[a.Name],
			Sheet:    a.Sheet,
			Cell:     a.Coord.String(),
		})
	}
	return entries
}

// FromRewrite turns the cells changed by a rewrite into entries. Dry runs
// produce none.
func FromRewrite(command, workbook string, res *rewrite.Result) []Entry {
	if res == nil || res.DryRun {
		return nil
	}
	entries := make([]Entry, 0, len(res.Changes))
	for _, c := range res.Changes {
		entries = append(entries, Entry{
			Command:  command,
			Kind:     KindFormula,
			Workbook: workbook,
			Sheet:    c.Sheet,
			Cell:     c.Cell,
			Before:   c.Before,
			After:    c.After,
		})
	}
	return entries
}

// Saved records that a workbook was written to output.
func Saved(command, workbook, output string) Entry {
	return Entry{Command: command, Kind: KindSave, Workbook: workbook, Output: output}
}

// ReadEntries reads all entries from the journal file.
func ReadEntries(filePath string) ([]Entry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue // skip malformed lines
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FilterEntries returns entries matching the given criteria. Workbook matches
// on the base name.
func FilterEntries(entries []Entry, since, until time.Time, workbook, kind string) []Entry {
	var result []Entry
	for _, e := range entries {
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && e.Timestamp.After(until) {
			continue
		}
		if workbook != "" && filepath.Base(e.Workbook) != filepath.Base(workbook) {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		result = append(result, e)
	}
	return result
}

// Size returns the size of the journal in bytes, or 0 if not found.
func Size(filePath string) int64 {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Clear truncates the journal file.
func Clear(filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}
	return os.Truncate(filePath, 0)
}
