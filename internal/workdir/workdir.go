// Package workdir provides scoped temporary directories with guaranteed,
// idempotent cleanup and an optional pre-removal hook.
package workdir

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/memcomp/harness/internal/logging"
)

// CleanupFunc runs once, before the directory is removed, with the
// still-valid handle as its argument. It is the only place a caller gets
// to move files out of the workdir before it disappears.
type CleanupFunc func(w *Workdir) error

// Workdir is a scoped, uniquely-named directory under a shared work
// root. Release it via Cleanup (directly, or deferred) exactly once;
// further calls are no-ops.
type Workdir struct {
	Name string
	Path string

	cleanupFn CleanupFunc
	mu        sync.Mutex
	released  bool
}

// New creates "<root>/<stem>--<rand>" and returns a handle scoped to it.
// cleanupFn may be nil.
func New(root, stem string, cleanupFn CleanupFunc) (*Workdir, error) {
	name := fmt.Sprintf("%s--%d", stem, rand.Intn(1_000_000))
	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create workdir %s: %w", name, err)
	}

	logging.WithComponent("workdir").Debug().Str("name", name).Msg("create workdir")

	return &Workdir{
		Name:      name,
		Path:      path,
		cleanupFn: cleanupFn,
	}, nil
}

// Cleanup runs the cleanup hook (if any) then recursively removes the
// directory. Safe to call more than once; only the first call acts.
func (w *Workdir) Cleanup() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return nil
	}

	logging.WithComponent("workdir").Debug().Str("name", w.Name).Msg("cleanup workdir")

	var hookErr error
	if w.cleanupFn != nil {
		hookErr = w.cleanupFn(w)
	}

	if _, err := os.Stat(w.Path); err == nil {
		_ = os.RemoveAll(w.Path)
	}
	w.released = true

	if hookErr != nil {
		return fmt.Errorf("workdir %s cleanup hook: %w", w.Name, hookErr)
	}
	return nil
}

// Released reports whether Cleanup has already run.
func (w *Workdir) Released() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.released
}
