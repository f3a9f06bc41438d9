// Package prompt supplies answers to the questions the fetch command asks,
// either from a terminal or from a fixed script.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter answers questions.
type Prompter interface {
	// Ask returns the answer to question, or def when the answer is empty.
	Ask(question, def string) (string, error)
	// Confirm returns true for a yes answer.
	Confirm(question string) (bool, error)
}

// IsInteractive reports whether f is attached to a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Terminal reads line-based answers from In and writes questions to Out.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal returns a Terminal prompter.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (t *Terminal) Ask(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(t.out, "%s [%s] ", question, def)
	} else {
		fmt.Fprintf(t.out, "%s ", question)
	}
	answer, err := t.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func (t *Terminal) Confirm(question string) (bool, error) {
	fmt.Fprintf(t.out, "%s [y/N] ", question)
	answer, err := t.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Static answers from fixed values, for flags-only runs and tests.
// Unknown questions get the default and false.
type Static struct {
	Answers       map[string]string
	Confirmations map[string]bool
}

func (s Static) Ask(question, def string) (string, error) {
	if v, ok := s.Answers[question]; ok && v != "" {
		return v, nil
	}
	return def, nil
}

func (s Static) Confirm(question string) (bool, error) {
	return s.Confirmations[question], nil
}
