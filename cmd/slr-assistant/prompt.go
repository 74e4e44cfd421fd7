// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// prompter reads line-oriented answers for the interactive commands.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

// ask prints label and returns the trimmed reply. It returns io.EOF when
// input ends.
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// askRequired repeats the question until the reply is non-blank.
func (p *prompter) askRequired(label string) (string, error) {
	for {
		s, err := p.ask(label)
		if err != nil || s != "" {
			return s, err
		}
		fmt.Fprintln(p.out, "A value is required.")
	}
}

// confirm asks a yes/no question; anything but y or yes is no.
func (p *prompter) confirm(label string) (bool, error) {
	s, err := p.ask(label + " [y/N]")
	if err != nil {
		return false, err
	}
	s = strings.ToLower(s)
	return s == "y" || s == "yes", nil
}
