package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// PromptConfirmer reads a y/N answer from a line-oriented input.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPromptConfirmer prompts on out and reads answers from in.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	if in == nil {
		in = strings.NewReader("")
	}
	return &PromptConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm returns true only for "y" or "yes". End of input declines.
func (c *PromptConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	if errors.Is(err, io.EOF) && line == "" {
		fmt.Fprintln(c.out)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
