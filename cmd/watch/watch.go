// Package watch provides the "namekit watch" CLI commands.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/klytics/namekit/internal/config"
	"github.com/klytics/namekit/internal/journal"
	w "github.com/klytics/namekit/internal/watch"
)

// NewCommand creates the "watch" command with subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-apply a plan whenever the workbook or plan changes",
		Long: `Watch a workbook and a plan file and re-run the plan each time either one
is saved. Office lock files (~$book.xlsx) are ignored.

Example:
  namekit watch start book.xlsx --plan plan.yaml
  namekit watch status
  namekit watch stop`,
	}

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func stateDir() string {
	return filepath.Dir(config.ConfigPath())
}

type state struct {
	Job       w.Job  `json:"job"`
	StartedAt string `json:"startedAt"`
}

func newStartCmd() *cobra.Command {
	var (
		planFile string
		debounce int
	)

	cmd := &cobra.Command{
		Use:   "start <file.xlsx>",
		Short: "Start watching a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if planFile == "" {
				return fmt.Errorf("no plan given — pass --plan plan.yaml (create one with 'namekit plan init')")
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = cfg.Watch.DebounceMs
			}

			job := w.Job{Workbook: args[0], PlanFile: planFile, OutputPrefix: cfg.Output.Prefix}
			watcher, err := w.New(job, time.Duration(debounce)*time.Millisecond)
			if err != nil {
				return err
			}
			watcher.Journal = journal.New(cfg.Journal.Path, cfg.Journal.Enabled)

			out := cmd.OutOrStdout()
			watcher.OnRun = func(run w.Run) {
				if jsonOut {
					json.NewEncoder(out).Encode(run)
					return
				}
				switch run.Status {
				case "processed":
					fmt.Fprintf(out, "[%s] %s → %s (%d names, %d cells)\n", run.Time.Format("15:04:05"),
						run.Trigger, run.Output, run.Created, run.Modified)
				case "error":
					fmt.Fprintf(out, "[%s] %s → error: %s\n", run.Time.Format("15:04:05"), run.Trigger, run.Error)
				}
			}

			// Write PID and job for the status command
			dir := stateDir()
			if err := w.WritePIDFile(dir); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not write PID file: %v\n", err)
			}
			defer w.RemovePIDFile(dir)
			saveState(dir, state{Job: job, StartedAt: time.Now().Format(time.RFC3339)})

			if !jsonOut {
				fmt.Fprintf(out, "Watching %s with plan %s\n", args[0], planFile)
				fmt.Fprintln(out, "Press Ctrl+C to stop")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return watcher.Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&planFile, "plan", "p", "", "Plan file to apply (required)")
	cmd.Flags().IntVar(&debounce, "debounce", config.DefaultDebounceMs, "Debounce interval in milliseconds (default from config)")

	return cmd
}

func saveState(dir string, st state) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(filepath.Join(dir, "watch-state.json"), data, 0644)
}

func loadState(dir string) (*state, error) {
	data, err := os.ReadFile(filepath.Join(dir, "watch-state.json"))
	if err != nil {
		return nil, err
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("invalid watch state: %w", err)
	}
	return &st, nil
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := stateDir()
			pid, err := w.ReadPIDFile(dir)
			if err != nil {
				return fmt.Errorf("no watcher running (PID file not found)")
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("could not find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				w.RemovePIDFile(dir)
				return fmt.Errorf("could not stop watcher (PID %d): %w", pid, err)
			}

			w.RemovePIDFile(dir)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"stopped": true,
					"pid":     pid,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stopped watcher (PID %d)\n", pid)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current watcher status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := stateDir()

			pid, err := w.ReadPIDFile(dir)
			running := err == nil

			// Check if process is actually running
			if running {
				process, err := os.FindProcess(pid)
				if err != nil {
					running = false
				} else if err := process.Signal(syscall.Signal(0)); err != nil {
					running = false
					w.RemovePIDFile(dir)
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			if !running {
				if jsonOut {
					return json.NewEncoder(out).Encode(map[string]any{"running": false})
				}
				fmt.Fprintln(out, "Watcher is not running")
				return nil
			}

			status := map[string]any{
				"running": true,
				"pid":     pid,
			}
			st, _ := loadState(dir)
			if st != nil {
				status["workbook"] = st.Job.Workbook
				status["plan"] = st.Job.PlanFile
				status["startedAt"] = st.StartedAt
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(status)
			}

			fmt.Fprintf(out, "Watcher running (PID %d)\n", pid)
			if st != nil {
				fmt.Fprintf(out, "  Workbook: %s\n", st.Job.Workbook)
				fmt.Fprintf(out, "  Plan:     %s\n", st.Job.PlanFile)
				fmt.Fprintf(out, "  Started:  %s\n", st.StartedAt)
			}
			return nil
		},
	}
}
