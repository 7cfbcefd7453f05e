// Package engine implements the phase controller that drives a full
// reduction run end to end: a startup sanity check, an optional initial
// phase, the main fixpoint sweep (including the one-time preprocessing
// step), a cleanup phase, and finalization.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rgov/creduce/internal/best"
	"github.com/rgov/creduce/internal/cache"
	"github.com/rgov/creduce/internal/delta"
	"github.com/rgov/creduce/internal/logging"
	"github.com/rgov/creduce/internal/oracle"
	"github.com/rgov/creduce/internal/pass"
	"github.com/rgov/creduce/internal/registry"
	"github.com/rgov/creduce/internal/scratch"
)

// FatalError distinguishes driver-terminating errors from an oracle's
// rejection of a single candidate (which is recovered locally and never
// reaches this type). Kind classifies the failure without string-sniffing
// the message; main exits with status 1 for every error, whatever its Kind.
type FatalError struct {
	Kind string
	Err  error
}

func (e *FatalError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

func fatal(kind string, err error) error { return &FatalError{Kind: kind, Err: err} }

const (
	KindConfig     = "configuration error"
	KindPrereq     = "prerequisite failure"
	KindOracleOrig = "oracle rejected original input"
	KindOracleBest = "oracle rejected current best"
	KindIO         = "i/o failure"
	KindPreprocess = "preprocessor command failed"
)

// Reporter receives progress and final-statistics callbacks. A nil
// Reporter is valid; every method is only ever called through it after a
// nil check.
type Reporter interface {
	PassStart(phase, name, arg string)
	Progress(name, arg string, c delta.Counters, bestSize int64)
	Diff(before, after []byte)
	Final(c delta.Counters, elapsed time.Duration, origSize, finalSize int64)
}

// Engine owns every long-lived collaborator a reduction run needs.
type Engine struct {
	Registry *registry.Registry
	Best     *best.File
	Scratch  *scratch.Workspace
	Runner   *oracle.Runner
	Opts     registry.Options
	OrigPath string

	// Cache, if non-nil, is shared across every delta.Loop this engine
	// drives, so a verdict learned under one pass can still short-circuit
	// the oracle under a later one.
	Cache *cache.Cache

	Reporter Reporter

	// Counters holds the accumulated trial counts from the most recent
	// Run, available to callers that want to dump statistics afterward.
	Counters delta.Counters
}

// Run executes the full phase sequence and overwrites OrigPath with the
// final best artifact on success.
func (e *Engine) Run(ctx context.Context) error {
	start := time.Now()
	total := delta.NewCounters()
	defer func() { e.Counters = total }()

	logging.Engine("startup sanity check")
	if err := e.Best.SanityCheck(ctx); err != nil {
		return fatal(KindOracleOrig, err)
	}

	if err := e.Registry.CheckPrereqs(ctx); err != nil {
		return fatal(KindPrereq, err)
	}

	if !e.Opts.SkipInitial {
		if err := e.runSweep(ctx, registry.PhaseFirst, &total); err != nil {
			return err
		}
	}

	if err := e.mainFixpoint(ctx, &total); err != nil {
		return err
	}

	if err := e.runSweep(ctx, registry.PhaseCleanup, &total); err != nil {
		return err
	}

	if err := e.Best.Finalize(e.OrigPath); err != nil {
		return fatal(KindIO, err)
	}

	if e.Reporter != nil {
		finalSize, _ := e.Best.Size()
		e.Reporter.Final(total, time.Since(start), e.Best.OrigSize(), finalSize)
	}
	return nil
}

// runSweep drives every descriptor registered for phase through the delta
// loop exactly once, in ascending priority order.
func (e *Engine) runSweep(ctx context.Context, phase registry.Phase, total *delta.Counters) error {
	it := e.Registry.Iterate(phase)
	for {
		d, ok := it.Next()
		if !ok {
			return nil
		}
		if err := e.runPass(ctx, d, total); err != nil {
			return err
		}
	}
}

// runPass looks up the implementation for d and drives one delta.Loop
// invocation for it, folding its counters into total.
func (e *Engine) runPass(ctx context.Context, d pass.Descriptor, total *delta.Counters) error {
	impl, ok := e.Registry.Lookup(d.Name)
	if !ok {
		return fatal(KindPrereq, fmt.Errorf("no implementation registered for pass family %q", d.Name))
	}

	if e.Reporter != nil {
		e.Reporter.PassStart("", d.Name, d.Arg)
	}
	logging.Engine("running pass %s/%s", d.Name, d.Arg)

	loop := &delta.Loop{
		Best:        e.Best,
		Scratch:     e.Scratch,
		Runner:      e.Runner,
		Workers:     e.Opts.Workers,
		Fuzz:        e.Opts.Fuzz,
		GiveupAfter: e.giveupAfter(),
		Cache:       e.Cache,
	}
	if e.Reporter != nil {
		loop.PrintProgress = func(c delta.Counters, bestSize int64) {
			e.Reporter.Progress(d.Name, d.Arg, c, bestSize)
		}
		if e.Opts.PrintDiff {
			loop.PrintDiff = e.Reporter.Diff
		}
	}

	counters, err := loop.Run(ctx, impl, d.Name, d.Arg)
	if err != nil {
		return fatal(KindIO, err)
	}
	total.Merge(counters)

	if e.Opts.SanityCheckEachPass {
		if err := e.Best.SanityCheck(ctx); err != nil {
			return fatal(KindOracleBest, err)
		}
	}
	return nil
}

func (e *Engine) giveupAfter() int {
	if e.Opts.GiveupAfter < 0 {
		return registry.GiveupOff
	}
	return e.Opts.GiveupAfter
}

// mainFixpoint runs repeated `pri`-ordered sweeps, continuing while a
// sweep still reduces the best file's size, with the one-time
// preprocessing step folded into the very first iteration.
func (e *Engine) mainFixpoint(ctx context.Context, total *delta.Counters) error {
	sweepNum := 0
	for {
		if sweepNum == 0 && e.Opts.PreprocessCmd != "" {
			if err := e.preprocess(ctx, total); err != nil {
				return err
			}
		}

		sizeBefore, err := e.Best.Size()
		if err != nil {
			return fatal(KindIO, err)
		}

		if err := e.runSweep(ctx, registry.PhaseMain, total); err != nil {
			return err
		}

		sizeAfter, err := e.Best.Size()
		if err != nil {
			return fatal(KindIO, err)
		}

		sweepNum++
		logging.Engine("main sweep %d: %d -> %d bytes", sweepNum, sizeBefore, sizeAfter)
		if sizeAfter >= sizeBefore {
			return nil
		}
	}
}

// preprocess runs the one-time external preprocessing command before
// the very first main-phase sweep. It is the only step
// permitted to increase the best file's size, since the fixpoint counter
// that governs mainFixpoint's loop condition is reset around it (the
// caller always performs at least one more sweep afterward regardless of
// the size delta this step produces).
func (e *Engine) preprocess(ctx context.Context, total *delta.Counters) error {
	logging.Engine("running one-time preprocessing step (%s)", e.Opts.PreprocessCmd)

	if err := e.runNamedPass(ctx, registry.FamilyLines, "0", total); err != nil {
		return err
	}

	dir, err := e.Scratch.MakeScratch()
	if err != nil {
		return fatal(KindIO, err)
	}
	defer e.Scratch.Release(dir)

	candidate := filepath.Join(dir, e.Best.BaseName())
	if err := e.Best.CopyInto(candidate); err != nil {
		return fatal(KindIO, err)
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", e.Opts.PreprocessCmd+" "+candidate)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fatal(KindPreprocess, err)
	}

	if err := e.Best.Accept(candidate); err != nil {
		return fatal(KindIO, err)
	}
	if err := e.Best.SanityCheck(ctx); err != nil {
		return fatal(KindOracleBest, err)
	}

	for _, arg := range []string{"0", "1", "2", "10"} {
		if err := e.runNamedPass(ctx, registry.FamilyLines, arg, total); err != nil {
			return err
		}
	}
	return nil
}

// runNamedPass drives one ad hoc (name, arg) pair through the delta loop
// outside the registry's normal phase iteration, used by the
// preprocessing step to invoke pass_lines directly regardless of whether
// it is registered for the main phase under that arg.
func (e *Engine) runNamedPass(ctx context.Context, name, arg string, total *delta.Counters) error {
	d := pass.Descriptor{Name: name, Arg: arg}
	return e.runPass(ctx, d, total)
}
