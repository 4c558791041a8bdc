package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"revoice/internal/task"
)

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
	clearLine = "\r\x1b[2K"
)

// progressPrinter renders task checkpoints. On a terminal it rewrites one
// line in place; otherwise it prints each distinct checkpoint once.
type progressPrinter struct {
	out         io.Writer
	interactive bool
	last        string
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, interactive: isTerminal(out)}
}

func (p *progressPrinter) report(t task.Task) {
	line := formatProgress(t)
	if line == p.last {
		return
	}
	p.last = line
	if p.interactive {
		fmt.Fprint(p.out, clearLine+colorize(t.Status, line))
		if !t.Status.Running() {
			fmt.Fprintln(p.out)
		}
		return
	}
	fmt.Fprintln(p.out, line)
}

func formatProgress(t task.Task) string {
	msg := strings.TrimSpace(t.Message)
	if msg == "" {
		msg = string(t.Status)
	}
	return fmt.Sprintf("[%3d%%] %-12s %s", t.Progress, t.Status, msg)
}

func colorize(status task.Status, line string) string {
	switch status {
	case task.StatusFailed:
		return ansiRed + line + ansiReset
	case task.StatusCompleted, task.StatusAnalyzed:
		return ansiGreen + line + ansiReset
	default:
		return line
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
