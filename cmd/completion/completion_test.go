package completion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "namekit"}
	root.AddCommand(&cobra.Command{Use: "names", Short: "Named range operations"})
	root.AddCommand(&cobra.Command{Use: "formulas", Short: "Formula operations"})
	root.AddCommand(NewCommand(root))

	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestCompletionScripts(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "__start_namekit"},
		{"zsh", "compdef"},
		{"fish", "complete -c namekit"},
		{"powershell", "Register-ArgumentCompleter"},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			out, err := run(t, "completion", tt.shell)
			if err != nil {
				t.Fatalf("completion %s failed: %v", tt.shell, err)
			}
			if !strings.HasPrefix(out, "# namekit "+tt.shell+" completion") {
				t.Errorf("expected header line, got %q", strings.SplitN(out, "\n", 2)[0])
			}
			if !strings.Contains(out, "# Install: namekit completion "+tt.shell) {
				t.Error("expected install hint in output")
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in %s completion", tt.want, tt.shell)
			}
		})
	}
}

func TestCompletionUnsupportedShell(t *testing.T) {
	if _, err := run(t, "completion", "tcsh"); err == nil {
		t.Error("expected error for an unsupported shell")
	}
}
