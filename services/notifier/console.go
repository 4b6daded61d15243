// Package notifsvc provides Notifier and Confirmer implementations for the
// terminal-facing apps.
package notifsvc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/trezcool/darasa/core"
)

type consoleNotifier struct {
	std *log.Logger
}

var _ core.Notifier = (*consoleNotifier)(nil)

func NewConsoleNotifier(std *log.Logger) core.Notifier {
	return &consoleNotifier{std: std}
}

func (n consoleNotifier) Success(msg string) { n.std.Printf("OK    : %s", msg) }
func (n consoleNotifier) Error(msg string)   { n.std.Printf("ERROR : %s", msg) }
func (n consoleNotifier) Info(msg string)    { n.std.Printf("INFO  : %s", msg) }

type terminalConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

var _ core.Confirmer = (*terminalConfirmer)(nil)

// NewTerminalConfirmer prompts y/N on out and reads the answer from in.
func NewTerminalConfirmer(in io.Reader, out io.Writer) core.Confirmer {
	return &terminalConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *terminalConfirmer) Confirm(ctx context.Context, msg string) bool {
	if ctx.Err() != nil {
		return false
	}
	_, _ = fmt.Fprintf(c.out, "%s [y/N] ", msg)

	type answer struct {
		yes bool
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		if err != nil && line == "" {
			ch <- answer{}
			return
		}
		line = strings.ToLower(strings.TrimSpace(line))
		ch <- answer{yes: line == "y" || line == "yes"}
	}()

	select {
	case <-ctx.Done():
		return false
	case a := <-ch:
		return a.yes
	}
}

type autoConfirmer struct {
	yes bool
}

var _ core.Confirmer = (*autoConfirmer)(nil)

// NewAutoConfirmer answers every prompt with the given value; used by
// non-interactive runs (-yes flag) and tests.
func NewAutoConfirmer(yes bool) core.Confirmer {
	return &autoConfirmer{yes: yes}
}

func (c *autoConfirmer) Confirm(ctx context.Context, _ string) bool {
	if ctx.Err() != nil {
		return false
	}
	return c.yes
}
