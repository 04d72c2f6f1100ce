// Package tui renders run notifications on the terminal.
//
// DESIGN: Sync notifications are convenience flashes, never load-bearing.
// When stdout is a terminal they render as dim one-liners; otherwise plain
// text, so piped output stays parseable.
package tui

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/term"
)

const (
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiReset  = "\033[0m"
)

// Notifier prints run and sync notifications. Safe for concurrent use.
type Notifier struct {
	mu    sync.Mutex
	quiet bool
	isTTY bool
}

// NewNotifier creates a notifier. quiet suppresses sync flashes (errors are
// always shown).
func NewNotifier(quiet bool) *Notifier {
	return &Notifier{
		quiet: quiet,
		isTTY: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// SyncStarted announces where mirrored output will appear.
func (n *Notifier) SyncStarted(dest string) {
	n.printf(ansiGreen, "⟳ syncing scripts to %s", dest)
}

// SyncFlash reports one completed mirror pass.
func (n *Notifier) SyncFlash(msg string) {
	if n.quiet {
		return
	}
	n.printf(ansiDim, "⟳ %s", msg)
}

// SyncError reports a non-fatal sync failure.
func (n *Notifier) SyncError(msg string) {
	n.printf(ansiYellow, "⟳ sync: %s", msg)
}

// RunDone reports completion and the run's total cost.
func (n *Notifier) RunDone(cost float64) {
	n.printf(ansiGreen, "✓ run complete · $%.4f", cost)
}

// RunFailed reports a run-level failure.
func (n *Notifier) RunFailed(err error) {
	n.printf(ansiRed, "✗ run failed: %v", err)
}

func (n *Notifier) printf(color, format string, args ...any) {
	n.mu.Lock()
	defer n.mu.Unlock()

	line := fmt.Sprintf(format, args...)
	if n.isTTY {
		fmt.Printf("%s%s%s\n", color, line, ansiReset)
		return
	}
	fmt.Println(line)
}
