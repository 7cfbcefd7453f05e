// Package scratch manages per-trial temporary directories with guaranteed
// cleanup on any exit path. Each candidate produced by the delta loop
// gets its own directory so concurrent speculative workers never collide.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/rgov/creduce/internal/logging"
)

// DirPrefix names every directory this package creates, so signal teardown
// and leak-detection tests can recognize them unambiguously.
const DirPrefix = "reducer-"

// Workspace tracks every scratch directory it has handed out so they can
// all be removed together, including from a signal handler.
type Workspace struct {
	mu   sync.Mutex
	root string
	dirs map[string]struct{}
	save bool
}

// New creates a Workspace rooted under the system temp directory (or root,
// if non-empty, which tests use to pick a deterministic location). save
// disables cleanup, keeping every scratch directory on disk for inspection
// (the driver's --save-temps option).
func New(root string, save bool) *Workspace {
	if root == "" {
		root = os.TempDir()
	}
	return &Workspace{
		root: root,
		dirs: make(map[string]struct{}),
		save: save,
	}
}

// MakeScratch creates and returns a fresh scratch directory. Failure to
// create one is fatal to the caller.
func (w *Workspace) MakeScratch() (string, error) {
	name := DirPrefix + uuid.NewString()
	path := filepath.Join(w.root, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("scratch: create %s: %w", path, err)
	}

	w.mu.Lock()
	w.dirs[path] = struct{}{}
	w.mu.Unlock()

	logging.ScratchDebug("created scratch dir %s", path)
	return path, nil
}

// Release removes a single scratch directory immediately, as soon as the
// candidate it held has been retired (accepted, rejected, or killed).
func (w *Workspace) Release(path string) {
	if w.save {
		w.forget(path)
		return
	}
	if err := os.RemoveAll(path); err != nil {
		logging.Get(logging.CategoryScratch).Warn("failed to remove scratch dir %s: %v", path, err)
	}
	w.forget(path)
}

func (w *Workspace) forget(path string) {
	w.mu.Lock()
	delete(w.dirs, path)
	w.mu.Unlock()
}

// RemoveAllScratch deletes every scratch directory still tracked by this
// workspace. It is safe to call from a signal handler path as well as on
// normal shutdown; it never panics and best-effort removes as much as it
// can even if individual removals fail.
func (w *Workspace) RemoveAllScratch() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.dirs))
	for p := range w.dirs {
		paths = append(paths, p)
	}
	w.dirs = make(map[string]struct{})
	w.mu.Unlock()

	if w.save {
		return
	}
	for _, p := range paths {
		_ = os.RemoveAll(p)
	}
}

// Paths returns a snapshot of every currently tracked scratch directory.
// Used by tests asserting nothing is leaked across a run.
func (w *Workspace) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.dirs))
	for p := range w.dirs {
		out = append(out, p)
	}
	return out
}
