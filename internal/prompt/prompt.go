// Package prompt asks the operator yes/no questions on a terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Confirmer asks a yes/no question and reports the answer.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Terminal reads answers from In and writes questions to Out.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminal returns a Terminal bound to the process stdin and stderr.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr}
}

// Confirm prints question followed by [y/N] and accepts y or yes.
// End of input counts as no.
func (t *Terminal) Confirm(question string) (bool, error) {
	if _, err := fmt.Fprintf(t.Out, "%s [y/N]: ", strings.TrimSpace(question)); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(t.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// IsInteractive reports whether r is a terminal an operator can answer on.
func IsInteractive(r io.Reader) bool {
	file, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Fixed is a Confirmer that always returns the same answer.
type Fixed bool

func (f Fixed) Confirm(string) (bool, error) { return bool(f), nil }
