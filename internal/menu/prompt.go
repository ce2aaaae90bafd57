package menu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
)

// ErrInterrupted is returned by a Prompter when the user presses Ctrl+C.
var ErrInterrupted = errors.New("interrupted")

// Prompter reads one line of input per prompt. It returns io.EOF when input
// ends and ErrInterrupted on Ctrl+C.
type Prompter interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// LinePrompter reads answers line by line. Used for piped input and tests.
type LinePrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewLinePrompter creates a prompter reading from in and echoing prompts to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{scanner: bufio.NewScanner(in), out: out}
}

// Prompt implements Prompter.
func (p *LinePrompter) Prompt(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

// Close implements Prompter.
func (p *LinePrompter) Close() error { return nil }

// ReadlinePrompter is the interactive prompter with line editing and a
// persistent history.
type ReadlinePrompter struct {
	rl *readline.Instance
}

// NewReadlinePrompter opens a terminal prompter. historyFile may be empty.
func NewReadlinePrompter(historyFile string) (*ReadlinePrompter, error) {
	if historyFile != "" {
		// Ensure parent dir exists
		os.MkdirAll(filepath.Dir(historyFile), 0755)
	}

	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &ReadlinePrompter{rl: rl}, nil
}

// Prompt implements Prompter.
func (p *ReadlinePrompter) Prompt(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", ErrInterrupted
	}
	return line, err
}

// Stdout is the writer that cooperates with the readline prompt.
func (p *ReadlinePrompter) Stdout() io.Writer {
	return p.rl.Stdout()
}

// Close implements Prompter.
func (p *ReadlinePrompter) Close() error {
	return p.rl.Close()
}
