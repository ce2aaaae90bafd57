// Package completion provides shell completion generation commands.
package completion

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type shell struct {
	install []string
	gen     func(root *cobra.Command, w io.Writer) error
}

var shells = map[string]shell{
	"bash": {
		install: []string{
			"namekit completion bash > /etc/bash_completion.d/namekit",
			"echo 'source <(namekit completion bash)' >> ~/.bashrc",
		},
		gen: func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	},
	"zsh": {
		install: []string{"namekit completion zsh > ~/.zsh/completions/_namekit"},
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	},
	"fish": {
		install: []string{"namekit completion fish > ~/.config/fish/completions/namekit.fish"},
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	},
	"powershell": {
		install: []string{"namekit completion powershell >> $PROFILE"},
		gen:     func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
	},
}

// NewCommand returns the completion command. Scripts are written to the
// command's output, so they can be captured or redirected.
func NewCommand(rootCmd *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completions",
		Long: `Generate shell completion scripts for namekit. Sheet, range and column
flags complete like any other flag; workbook arguments complete as files.

Install instructions:
  Bash:       namekit completion bash > /etc/bash_completion.d/namekit
  Zsh:        namekit completion zsh > ~/.zsh/completions/_namekit
  Fish:       namekit completion fish > ~/.config/fish/completions/namekit.fish
  PowerShell: namekit completion powershell >> $PROFILE`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, ok := shells[args[0]]
			if !ok {
				return fmt.Errorf("unsupported shell: %s — use one of bash, zsh, fish, powershell", args[0])
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "# namekit %s completion\n", args[0])
			for _, line := range sh.install {
				fmt.Fprintf(w, "# Install: %s\n", line)
			}
			fmt.Fprintln(w)
			return sh.gen(rootCmd, w)
		},
	}
	return cmd
}
