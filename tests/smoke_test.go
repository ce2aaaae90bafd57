// Package tests provides smoke tests that validate every namekit command
// exists, runs, and exits cleanly without panicking.
// These tests run the compiled binary, so they are integration tests.
package tests

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klytics/namekit/internal/formats/xlsx"
)

// kitBin returns the path to the compiled namekit binary.
func kitBin(t *testing.T) string {
	t.Helper()
	_, filename, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(filename), "..")
	bin := filepath.Join(root, "bin", "namekit")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}
	if _, err := os.Stat(bin); os.IsNotExist(err) {
		t.Skipf("namekit binary not found at %s — run 'go build -o bin/namekit .' first", bin)
	}
	return bin
}

// run executes namekit with args in an isolated HOME and returns stdout,
// stderr, and exit code.
func run(t *testing.T, home string, args ...string) (string, string, int) {
	t.Helper()
	cmd := exec.Command(kitBin(t), args...)
	cmd.Env = append(os.Environ(), "HOME="+home, "NAMEKIT_NO_PROGRESS=1")
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
	}
	return stdout.String(), stderr.String(), code
}

func sampleBook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tax.xlsx")
	fx := &xlsx.Fixture{Sheets: []xlsx.FixtureSheet{{
		Name: "Tax Calculation",
		Cells: map[string]any{
			"J200": "1657", "L200": 10,
			"K201": 2500, "L201": 20,
		},
		Formulas: map[string]string{"B1": "L200+L201"},
	}}}
	if err := xlsx.WriteFixture(fx, path); err != nil {
		t.Fatalf("WriteFixture failed: %v", err)
	}
	return path
}

// TestAllCommandsExist validates that every command appears in --help.
func TestAllCommandsExist(t *testing.T) {
	commands := []string{
		"names", "formulas", "menu", "plan", "watch",
		"config", "journal", "completion", "version",
	}

	stdout, _, code := run(t, t.TempDir(), "--help")
	if code != 0 {
		t.Fatalf("namekit --help exited with code %d", code)
	}
	for _, cmd := range commands {
		if !strings.Contains(stdout, cmd) {
			t.Errorf("command %q not found in namekit --help output", cmd)
		}
	}
}

// TestCreateThenRewrite validates the core create + rewrite flow on one file.
func TestCreateThenRewrite(t *testing.T) {
	home := t.TempDir()
	book := sampleBook(t)

	_, stderr, code := run(t, home, "names", "create", book,
		"--range", "L200:L201", "--output", book)
	if code != 0 {
		t.Fatalf("names create should exit 0, stderr: %s", stderr)
	}

	stdout, _, code := run(t, home, "names", "list", book)
	if code != 0 {
		t.Fatal("names list should exit 0")
	}
	if !strings.Contains(stdout, "display_code_1657") || !strings.Contains(stdout, "display_code_2500") {
		t.Errorf("names list should show both names, got: %s", stdout)
	}

	stdout, _, code = run(t, home, "formulas", "rewrite", book, "--all", "--dry-run", "--json")
	if code != 0 {
		t.Fatal("formulas rewrite --dry-run should exit 0")
	}
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("--json output is not valid JSON: %v\nOutput: %s", err, stdout)
	}
	if !strings.Contains(stdout, "display_code_1657+display_code_2500") {
		t.Errorf("dry run should report the rewritten formula, got: %s", stdout)
	}
}

// TestCreateRejectsBadColumns validates column validation exits non-zero.
func TestCreateRejectsBadColumns(t *testing.T) {
	book := sampleBook(t)
	_, stderr, code := run(t, t.TempDir(), "names", "create", book, "--columns", "J,1")
	if code == 0 {
		t.Fatal("names create with a digit column should fail")
	}
	if !strings.Contains(stderr, "invalid column") {
		t.Errorf("expected column error, got: %s", stderr)
	}
}

// TestVersionOutput validates version command format.
func TestVersionOutput(t *testing.T) {
	stdout, _, code := run(t, t.TempDir(), "version")
	if code != 0 {
		t.Fatal("namekit version should exit 0")
	}
	if !strings.Contains(stdout, "namekit") {
		t.Errorf("version output should contain 'namekit', got: %s", stdout)
	}
}

// TestWatchStatusNotRunning validates watch status when the watcher is off.
func TestWatchStatusNotRunning(t *testing.T) {
	stdout, _, _ := run(t, t.TempDir(), "watch", "status")
	if strings.Contains(stdout, "panic") {
		t.Error("watch status should not panic")
	}
}

// TestConfigShowRuns validates config show does not panic.
func TestConfigShowRuns(t *testing.T) {
	_, _, code := run(t, t.TempDir(), "config", "show")
	if code > 1 {
		t.Errorf("config show should exit 0 or 1, got %d", code)
	}
}

// TestAllCommandsHaveHelp validates every command accepts --help.
func TestAllCommandsHaveHelp(t *testing.T) {
	commandPaths := [][]string{
		{"names", "create"}, {"names", "list"}, {"names", "delete"},
		{"formulas", "rewrite"}, {"formulas", "refs"},
		{"menu"},
		{"plan", "run"}, {"plan", "validate"}, {"plan", "init"},
		{"watch", "start"}, {"watch", "status"}, {"watch", "stop"},
		{"config", "init"}, {"config", "show"}, {"config", "validate"},
		{"journal", "show"}, {"journal", "status"}, {"journal", "clear"},
		{"completion", "bash"}, {"completion", "zsh"},
		{"version"},
	}

	home := t.TempDir()
	for _, path := range commandPaths {
		args := append(path, "--help")
		t.Run(strings.Join(path, "_"), func(t *testing.T) {
			_, _, code := run(t, home, args...)
			if code != 0 {
				t.Errorf("namekit %s --help should exit 0", strings.Join(path, " "))
			}
		})
	}
}
