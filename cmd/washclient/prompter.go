package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// linePrompter asks questions on a terminal and reads y/n answers.
type linePrompter struct {
	out     io.Writer
	answers chan string
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	p := &linePrompter{
		out:     out,
		answers: make(chan string),
	}

	go func() {
		defer close(p.answers)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			p.answers <- scanner.Text()
		}
	}()

	return p
}

func (p *linePrompter) Confirm(ctx context.Context, title string, message string) (bool, error) {
	fmt.Fprintf(p.out, "\n%s\n%s [y/N] ", title, message)

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case answer, ok := <-p.answers:
		if !ok {
			return false, errors.New("input closed")
		}

		answer = strings.ToLower(strings.TrimSpace(answer))

		return answer == "y" || answer == "yes", nil
	}
}
