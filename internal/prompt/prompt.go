// Package prompt provides the blocking yes/no confirmation gate used
// before any destructive write. Writers take a Confirmer as an explicit
// dependency so tests can substitute a deterministic one.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Confirmer answers a yes/no question, blocking until the answer is
// unambiguous.
type Confirmer interface {
	Confirm(question string) bool
}

// ConfirmerFunc adapts a plain function to the Confirmer interface.
type ConfirmerFunc func(question string) bool

func (f ConfirmerFunc) Confirm(question string) bool {
	return f(question)
}

// Terminal asks on an interactive stream. Anything other than "yes" or
// "no" re-prompts; end of input counts as a refusal.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminal returns a Terminal bound to stdin/stdout.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stdout}
}

func (t *Terminal) Confirm(question string) bool {
	scanner := bufio.NewScanner(t.In)
	for {
		fmt.Fprintf(t.Out, "%s (yes/no): ", question)
		if !scanner.Scan() {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "yes":
			return true
		case "no":
			return false
		}
	}
}
