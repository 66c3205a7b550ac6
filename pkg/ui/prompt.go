package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter asks questions on a line-oriented input
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a prompter reading answers from in
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Choose asks until the answer is one of choices (case-insensitive). An
// empty answer picks def when def is not empty.
func (p *Prompter) Choose(question string, choices []string, def string) (string, error) {
	hint := strings.Join(choices, "/")
	for {
		fmt.Fprintf(p.out, "%s [%s]: ", question, hint)
		line, err := p.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "" && def != "" && (err == nil || line != "") {
			return def, nil
		}
		for _, c := range choices {
			if answer == strings.ToLower(c) {
				return c, nil
			}
		}
		if err != nil {
			return "", err
		}
		fmt.Fprintln(p.out, Yellow("please answer one of "+hint))
	}
}

// WaitEnter prints message and blocks until a line is read
func (p *Prompter) WaitEnter(message string) error {
	fmt.Fprint(p.out, message)
	_, err := p.in.ReadString('\n')
	if err == io.EOF {
		return nil
	}
	return err
}
