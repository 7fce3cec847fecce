package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// prompter serializes interactive stdin reads behind a single background
// reader so prompts and the login-confirmation loop never compete for the
// terminal.
type prompter struct {
	lines chan string
}

func newPrompter() *prompter {
	p := &prompter{lines: make(chan string, 1)}
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
		close(p.lines)
	}()
	return p
}

// ask prints a prompt and waits for one line of input or context
// cancellation.
func (p *prompter) ask(ctx context.Context, label string) (string, error) {
	fmt.Print(promptStyle.Render(label))
	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// yes asks a y/n question; anything but y/yes counts as no.
func (p *prompter) yes(ctx context.Context, label string) bool {
	answer, err := p.ask(ctx, label)
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

// confirmations turns terminal input into login-confirmation signals for
// capture.WaitForLogin: each ENTER sends one confirmation, "quit" (or EOF)
// closes the channel to abort. The goroutine exits when ctx is cancelled.
func (p *prompter) confirmations(ctx context.Context) <-chan struct{} {
	confirm := make(chan struct{})
	go func() {
		for {
			answer, err := p.ask(ctx, "\nPress ENTER when login is complete (or type 'quit' to abort): ")
			if err != nil {
				if err == io.EOF {
					close(confirm)
				}
				return
			}
			if strings.EqualFold(answer, "quit") {
				close(confirm)
				return
			}
			select {
			case confirm <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return confirm
}
