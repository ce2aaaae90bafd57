package output

import (
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-isatty"
)

// ShouldPage reports whether content written to w is longer than termHeight
// lines and w is an interactive stdout. Listings written to any other writer,
// or with NAMEKIT_NO_PAGER set, are never paged.
func ShouldPage(w io.Writer, content string, termHeight int) bool {
	if os.Getenv("NAMEKIT_NO_PAGER") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok || f != os.Stdout || !isatty.IsTerminal(f.Fd()) {
		return false
	}
	return strings.Count(content, "\n") > termHeight
}

// Page pipes content through NAMEKIT_PAGER, PAGER, or "less -R" in that order.
func Page(content string) error {
	pager := os.Getenv("NAMEKIT_PAGER")
	if pager == "" {
		pager = os.Getenv("PAGER")
	}
	args := strings.Fields(pager)
	if len(args) == 0 {
		args = []string{"less", "-R"}
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
