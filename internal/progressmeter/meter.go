// Package progressmeter renders the running counters kept by
// internal/treenode.State to the user, either as an in-place redrawn
// terminal line or, when output isn't a terminal, as plain log lines.
package progressmeter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// TerminalMeter redraws a single line in place using a carriage return
// when its output is a real terminal, and falls back to appending plain
// lines otherwise (redirected to a file, piped into another process).
type TerminalMeter struct {
	mu       sync.Mutex
	w        io.Writer
	isTTY    bool
	lastLine string
}

// New picks the right rendering mode for w by checking whether it's a
// terminal (via its file descriptor, when available).
func New(w *os.File) *TerminalMeter {
	return &TerminalMeter{w: w, isTTY: isatty.IsTerminal(w.Fd()) || isatty.IsCygwinTerminal(w.Fd())}
}

// Redraw implements treenode.Meter.
func (m *TerminalMeter) Redraw(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLine = line
	if m.isTTY {
		fmt.Fprintf(m.w, "\r\033[K%s", line)
		return
	}
	fmt.Fprintln(m.w, line)
}

// Done finalizes the meter's output: on a real terminal it moves past
// the redrawn line so subsequent output doesn't overwrite it.
func (m *TerminalMeter) Done() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isTTY && m.lastLine != "" {
		fmt.Fprintln(m.w)
	}
}

// SlogMeter logs each redraw at debug level instead of rendering a
// line, useful when running under the scheduler with no attached
// terminal at all.
type SlogMeter struct{}

// Redraw implements treenode.Meter.
func (SlogMeter) Redraw(line string) {
	slog.Debug("hash progress", "line", line)
}
