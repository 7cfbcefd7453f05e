// Package best maintains the single on-disk "best" artifact and the
// progress/sanity bookkeeping around it. The best file is the only
// artifact that outlives a single pass invocation, and the core
// correctness invariant (the best file is always oracle-accepted) is
// enforced entirely through this package's API: nothing else is
// permitted to write to it.
package best

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rgov/creduce/internal/logging"
	"github.com/rgov/creduce/internal/oracle"
	"github.com/rgov/creduce/internal/scratch"
)

// File owns the best-candidate artifact on disk plus the bookkeeping used
// to report progress and assert that invariant between passes.
type File struct {
	mu       sync.Mutex
	path     string // the <base>.best sibling file
	baseName string // canonical filename workers copy the best file to
	origSize int64
	scratch  *scratch.Workspace
	runner   *oracle.Runner
}

// New creates the <base>.best file seeded from the input at origPath, and
// records its size as the 100% baseline for progress reporting. bestPath
// is the sibling path the best file is maintained at, conventionally
// "<base>.best".
func New(origPath, bestPath string, ws *scratch.Workspace, runner *oracle.Runner) (*File, error) {
	data, err := os.ReadFile(origPath)
	if err != nil {
		return nil, fmt.Errorf("best: read input %s: %w", origPath, err)
	}
	if err := os.WriteFile(bestPath, data, 0644); err != nil {
		return nil, fmt.Errorf("best: seed %s: %w", bestPath, err)
	}
	return &File{
		path:     bestPath,
		baseName: filepath.Base(origPath),
		origSize: int64(len(data)),
		scratch:  ws,
		runner:   runner,
	}, nil
}

// Path returns the on-disk location of the best file.
func (f *File) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

// BaseName is the canonical filename every scratch copy of the best file
// uses, so a pass always sees the artifact under its original name.
func (f *File) BaseName() string { return f.baseName }

// Size returns the current size of the best file in bytes.
func (f *File) Size() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// OrigSize is the size of the input artifact at startup, the 100% baseline
// for PrintPct.
func (f *File) OrigSize() int64 { return f.origSize }

// CopyInto copies the current best file's bytes to dst, at the canonical
// base name. Used to seed a scratch copy before a pass runs.
func (f *File) CopyInto(dst string) error {
	f.mu.Lock()
	src := f.path
	f.mu.Unlock()
	return copyFile(src, dst)
}

// Accept overwrites the best file with candidatePath's bytes. Callers
// must only call Accept with bytes the oracle has already
// accepted.
func (f *File) Accept(candidatePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := f.path + ".tmp"
	if err := copyFile(candidatePath, tmp); err != nil {
		return fmt.Errorf("best: stage accepted candidate: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("best: commit accepted candidate: %w", err)
	}
	logging.EngineDebug("best file updated from %s", candidatePath)
	return nil
}

// Finalize writes the best file's current bytes over the original input
// path, exactly once, at the end of a run.
func (f *File) Finalize(origPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyFile(f.path, origPath)
}

// PrintPct reports (1 - size/origSize) as a percentage, for human-facing
// progress output.
func (f *File) PrintPct(size int64) float64 {
	if f.origSize == 0 {
		return 0
	}
	return (1 - float64(size)/float64(f.origSize)) * 100
}

// SanityCheck re-verifies that the current best file still satisfies the
// oracle: it creates a scratch dir, copies the best file in under the
// canonical name, invokes the oracle, and returns an error if rejected.
// Callers treat a non-nil error as fatal.
func (f *File) SanityCheck(ctx context.Context) error {
	dir, err := f.scratch.MakeScratch()
	if err != nil {
		return err
	}
	defer f.scratch.Release(dir)

	candidate := filepath.Join(dir, f.baseName)
	if err := f.CopyInto(candidate); err != nil {
		return err
	}

	result, err := f.runner.Run(ctx, dir, candidate)
	if err != nil {
		return fmt.Errorf("best: sanity check could not invoke oracle: %w", err)
	}
	if !result.Interesting {
		return fmt.Errorf("best: sanity check failed: oracle rejected the current best file")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
