package syncwatch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/harforge/harforge/internal/config"
)

// addTree adds path and every directory below it to the watch. Non-directory
// paths are ignored.
func addTree(fsw *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(p)
		}
		return nil
	})
}

// mirrorTree makes dst an exact mirror of src: new and changed files are
// copied, directories created, and dst entries absent from src deleted.
// Per-file failures do not abort the pass; they are joined into one error
// after the full sweep so a single locked file can't block the rest. The
// deletion sweep only runs when the source walk saw the whole tree.
func mirrorTree(src, dst string) (copied, deleted int, err error) {
	var errs []error

	seen := map[string]bool{".": true}
	enumComplete := true

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			// A file can disappear mid-walk; skip it, the next pass catches up.
			if os.IsNotExist(werr) {
				return nil
			}
			// An unreadable subtree means seen is missing live entries.
			enumComplete = false
			errs = append(errs, werr)
			return nil
		}

		rel, rerr := filepath.Rel(src, path)
		if rerr != nil {
			errs = append(errs, rerr)
			return nil
		}
		seen[rel] = true
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			if merr := os.MkdirAll(target, config.DirPerm); merr != nil {
				// SkipDir leaves this subtree out of seen as well.
				enumComplete = false
				errs = append(errs, merr)
				return filepath.SkipDir
			}
			return nil
		}

		changed, cerr := copyIfChanged(path, target)
		if cerr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rel, cerr))
			return nil
		}
		if changed {
			copied++
		}
		return nil
	})
	if walkErr != nil {
		enumComplete = false
		errs = append(errs, walkErr)
	}

	// Delete only from a complete source enumeration. With a partial view a
	// live file's mirror would look stale; keeping a genuinely stale entry
	// until the next clean pass is recoverable, removing a live one is not.
	if enumComplete {
		deleted = deleteUnseen(dst, seen, &errs)
	}

	return copied, deleted, errors.Join(errs...)
}

// deleteUnseen removes destination entries with no source counterpart.
func deleteUnseen(dst string, seen map[string]bool, errs *[]error) int {
	deleted := 0
	_ = filepath.WalkDir(dst, func(path string, d fs.DirEntry, werr error) error {
		if werr != nil {
			if !os.IsNotExist(werr) {
				*errs = append(*errs, werr)
			}
			return nil
		}
		rel, rerr := filepath.Rel(dst, path)
		if rerr != nil || seen[rel] {
			return nil
		}
		if derr := os.RemoveAll(path); derr != nil {
			*errs = append(*errs, derr)
			return nil
		}
		deleted++
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	return deleted
}

// copyIfChanged copies src to dst when dst is missing or differs by size or
// modification time. The copy carries over the source's mode and mtime so a
// subsequent pass sees the pair as identical.
func copyIfChanged(src, dst string) (bool, error) {
	si, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	if di, err := os.Stat(dst); err == nil {
		if di.Size() == si.Size() && di.ModTime().Equal(si.ModTime()) {
			return false, nil
		}
	}

	in, err := os.Open(src) // #nosec G304 -- paths confined to the run's directories
	if err != nil {
		return false, err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, si.Mode().Perm())
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return false, err
	}
	if err := out.Close(); err != nil {
		return false, err
	}
	if err := os.Chtimes(dst, si.ModTime(), si.ModTime()); err != nil {
		return false, err
	}
	return true, nil
}
