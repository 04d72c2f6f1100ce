// Package workspace allocates non-conflicting destination directories for
// mirrored run output.
//
// DESIGN: An existing populated directory is never reused or overwritten.
// The allocator probes base, base-2, base-3, ... and claims the first empty
// or missing candidate. Claims use os.Mkdir so two near-simultaneous calls
// for the same base name race at the filesystem, not in process state; the
// loser falls through to the next candidate.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harforge/harforge/internal/config"
)

// ErrNoFreeSlot is returned when no candidate directory is free within the
// probe bound.
var ErrNoFreeSlot = errors.New("workspace: no free directory slot within probe bound")

// Allocate finds or creates a destination directory parent/base.
// If that path is missing it is created; if it exists and is empty it is
// reused; if it is non-empty, suffixed candidates (base-2, base-3, ...) are
// probed in increasing order. The search is bounded by config.MaxSlotProbes.
func Allocate(parent, base string) (string, error) {
	if base == "" {
		return "", errors.New("workspace: base name must not be empty")
	}
	if err := os.MkdirAll(parent, config.DirPerm); err != nil {
		return "", fmt.Errorf("workspace: create parent %s: %w", parent, err)
	}

	for i := 1; i <= config.MaxSlotProbes; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		candidate := filepath.Join(parent, name)

		err := os.Mkdir(candidate, config.DirPerm)
		if err == nil {
			return candidate, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("workspace: create %s: %w", candidate, err)
		}

		// Candidate exists. Reuse only if it is an empty directory.
		empty, derr := isEmptyDir(candidate)
		if derr != nil {
			// Not a directory, or unreadable: skip to the next candidate.
			continue
		}
		if empty {
			return candidate, nil
		}
	}
	return "", ErrNoFreeSlot
}

// isEmptyDir reports whether path is a directory with no entries.
func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path) // #nosec G304 -- paths derived from config
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	_, err = f.ReadDir(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
