// Package watch re-applies a plan to a workbook whenever the workbook or the
// plan file is written.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/klytics/namekit/internal/journal"
	"github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/plan"
)

// Job names the files a watcher works on.
type Job struct {
	Workbook     string `json:"workbook"`
	PlanFile     string `json:"plan"`
	OutputPrefix string `json:"outputPrefix,omitempty"`
}

// Run is the outcome of one application of the plan.
type Run struct {
	Time     time.Time `json:"time"`
	Trigger  string    `json:"trigger"`
	Output   string    `json:"output,omitempty"`
	Created  int       `json:"created"`
	Modified int       `json:"modified"`
	Failed   int       `json:"failed"`
	Status   string    `json:"status"` // "processed", "error", "skipped"
	Error    string    `json:"error,omitempty"`
}

// Watcher monitors a workbook and its plan and re-runs the plan on change.
type Watcher struct {
	Job      Job
	Debounce time.Duration
	Logger   *log.Logger
	Journal  *journal.Journal
	// OnRun is called after every run, from the watcher's goroutine.
	OnRun func(Run)

	executor *plan.Executor
	watcher  *fsnotify.Watcher

	// held for the whole of Apply; one load-run-save at a time
	runMu sync.Mutex

	mu      sync.Mutex
	runs    []Run
	timer   *time.Timer
	trigger string
	written fileStamp
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// Status represents the current watcher status.
type Status struct {
	Running   bool   `json:"running"`
	Workbook  string `json:"workbook"`
	Plan      string `json:"plan"`
	RunCount  int    `json:"runCount"`
	LastRun   string `json:"lastRun,omitempty"`
	LastError string `json:"lastError,omitempty"`
}

// New creates a Watcher. A non-positive debounce means 500ms.
func New(job Job, debounce time.Duration) (*Watcher, error) {
	if _, err := os.Stat(job.Workbook); err != nil {
		return nil, fmt.Errorf("file not found: %s — check that the path is correct", job.Workbook)
	}
	if _, err := os.Stat(job.PlanFile); err != nil {
		return nil, fmt.Errorf("plan file not found: %s — check that the path is correct", job.PlanFile)
	}
	if job.OutputPrefix == "" {
		job.OutputPrefix = "updated_"
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}

	logger := log.New(os.Stderr, "[watch] ", log.LstdFlags)
	executor := plan.NewExecutor(false)
	executor.SetLogger(logger)

	return &Watcher{
		Job:      job,
		Debounce: debounce,
		Logger:   logger,
		executor: executor,
		watcher:  fsw,
	}, nil
}

// SetLogger replaces the logger of the watcher and its plan executor.
func (w *Watcher) SetLogger(l *log.Logger) {
	w.Logger = l
	w.executor.SetLogger(l)
}

// Start applies the plan once, then again after every debounced change. It
// blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := map[string]bool{}
	for _, p := range []string{w.Job.Workbook, w.Job.PlanFile} {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", p, err)
		}
		dirs[filepath.Dir(abs)] = true
	}
	// Editors often replace files by rename, so watch the directories.
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("could not watch %s: %w", dir, err)
		}
	}

	w.Logger.Printf("Watching %s with plan %s", w.Job.Workbook, w.Job.PlanFile)
	w.record(w.Apply(ctx, "start"))

	for {
		select {
		case <-ctx.Done():
			w.Logger.Println("Stopping watcher")
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Printf("Error: %v", err)
		}
	}
}

// Relevant reports whether a change to path should trigger a run.
func (w *Watcher) Relevant(path string) bool {
	base := filepath.Base(path)
	// Office lock files
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~") {
		return false
	}
	return sameFile(path, w.Job.Workbook) || sameFile(path, w.Job.PlanFile)
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	if !w.Relevant(event.Name) {
		return
	}

	// Debounce: one run per burst of writes to either file
	w.mu.Lock()
	defer w.mu.Unlock()
	w.trigger = filepath.Base(event.Name)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.Debounce, func() {
		w.mu.Lock()
		trigger := w.trigger
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.record(w.Apply(ctx, trigger))
	})
}

// Apply loads the plan and a fresh copy of the workbook, runs the plan and
// saves the result to the plan's output. Concurrent calls run one after the
// other.
func (w *Watcher) Apply(ctx context.Context, trigger string) Run {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	run := Run{Time: time.Now(), Trigger: trigger}

	// Our own overwrite of the workbook must not trigger another run.
	if trigger == filepath.Base(w.Job.Workbook) && w.unchangedSinceWrite() {
		run.Status = "skipped"
		return run
	}

	p, err := plan.LoadPlan(w.Job.PlanFile)
	if err != nil {
		return failed(run, err)
	}
	s, err := names.Open(w.Job.Workbook)
	if err != nil {
		return failed(run, err)
	}
	defer s.Close()

	report, err := w.executor.Run(ctx, s, p)
	if report != nil {
		run.Created, run.Modified, run.Failed = report.Created, report.Modified, report.Failed
	}
	if err != nil {
		return failed(run, err)
	}
	output := plan.OutputPath(p, w.Job.Workbook, w.Job.OutputPrefix)
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return failed(run, fmt.Errorf("could not create output directory: %w", err))
	}
	if err := s.Workbook().SaveAs(output); err != nil {
		return failed(run, err)
	}
	run.Output = output
	run.Status = "processed"

	if sameFile(output, w.Job.Workbook) {
		w.stampWrite()
	}

	var entries []journal.Entry
	for _, step := range report.Steps {
		entries = append(entries, journal.FromBuild("watch", w.Job.Workbook, step.Build)...)
		entries = append(entries, journal.FromRewrite("watch", w.Job.Workbook, step.Rewrite)...)
	}
	entries = append(entries, journal.Saved("watch", w.Job.Workbook, output))
	w.Journal.Append(ctx, entries...)

	return run
}

func failed(run Run, err error) Run {
	run.Status = "error"
	run.Error = err.Error()
	return run
}

func (w *Watcher) stampWrite() {
	info, err := os.Stat(w.Job.Workbook)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.written = fileStamp{size: info.Size(), modTime: info.ModTime()}
	w.mu.Unlock()
}

func (w *Watcher) unchangedSinceWrite() bool {
	info, err := os.Stat(w.Job.Workbook)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written.size == info.Size() && w.written.modTime.Equal(info.ModTime())
}

func (w *Watcher) record(run Run) {
	switch run.Status {
	case "error":
		w.Logger.Printf("Error applying plan (%s): %s", run.Trigger, run.Error)
	case "skipped":
		w.Logger.Printf("Skipped %s: unchanged since last save", run.Trigger)
	default:
		w.Logger.Printf("Applied plan (%s): %d names, %d cells modified -> %s",
			run.Trigger, run.Created, run.Modified, run.Output)
	}

	w.mu.Lock()
	w.runs = append(w.runs, run)
	onRun := w.OnRun
	w.mu.Unlock()
	if onRun != nil {
		onRun(run)
	}
}

// GetStatus returns the current watcher status.
func (w *Watcher) GetStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := Status{
		Running:  true,
		Workbook: w.Job.Workbook,
		Plan:     w.Job.PlanFile,
		RunCount: len(w.runs),
	}
	if n := len(w.runs); n > 0 {
		last := w.runs[n-1]
		st.LastRun = last.Time.Format(time.RFC3339)
		st.LastError = last.Error
	}
	return st
}

// GetRuns returns all recorded runs.
func (w *Watcher) GetRuns() []Run {
	w.mu.Lock()
	defer w.mu.Unlock()
	runs := make([]Run, len(w.runs))
	copy(runs, w.runs)
	return runs
}

// Close releases the file watcher without starting it.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

const pidFile = "watch.pid"

// WritePIDFile writes the current process ID to the PID file in dir.
func WritePIDFile(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, pidFile)
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), 0644)
}

// ReadPIDFile reads the PID from the PID file.
func ReadPIDFile(dir string) (int, error) {
	path := filepath.Join(dir, pidFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// RemovePIDFile removes the PID file.
func RemovePIDFile(dir string) error {
	return os.Remove(filepath.Join(dir, pidFile))
}
