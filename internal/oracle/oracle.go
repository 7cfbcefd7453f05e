// Package oracle invokes the external interestingness command against a
// candidate artifact. The runner never interprets the candidate itself:
// its only job is to run the command and translate exit status into a
// boolean verdict.
package oracle

import (
	"bytes"
	"context"
	"os/exec"
	"syscall"

	"github.com/rgov/creduce/internal/logging"
	"github.com/rgov/creduce/internal/procgroup"
)

// Runner invokes a single interestingness script against candidate files.
type Runner struct {
	// Script is the path to the oracle executable.
	Script string
	// Verbose, when true, captures the oracle's stdout/stderr and writes
	// them to the oracle debug log when a candidate is rejected; otherwise
	// they are discarded.
	Verbose bool
}

// New returns a Runner for the given oracle script.
func New(script string, verbose bool) *Runner {
	return &Runner{Script: script, Verbose: verbose}
}

// Result is the outcome of one oracle invocation, detailed enough for the
// delta loop to distinguish a clean reject from a worker crash, which is
// itself treated as a rejection rather than a Go error.
type Result struct {
	Interesting bool
	ExitCode    int
	Crashed     bool
}

// Run executes the oracle against candidatePath with cwd set to dir, the
// candidate's scratch directory. Result.Interesting is true iff the oracle
// exits zero. A worker crash (signal death, non-zero exit) is folded into
// "not interesting" rather than surfaced as a Go error.
func (r *Runner) Run(ctx context.Context, dir, candidatePath string) (Result, error) {
	timer := logging.StartTimer(logging.CategoryOracle, "oracle invocation")
	defer timer.Stop()

	cmd := exec.CommandContext(ctx, r.Script, candidatePath)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	if r.Verbose {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	if err == nil {
		logging.OracleDebug("oracle accepted %s", candidatePath)
		return Result{Interesting: true, ExitCode: 0}, nil
	}

	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		code := exitErr.ExitCode()
		crashed := signaled(exitErr)
		if r.Verbose {
			logging.OracleDebug("oracle rejected %s (exit=%d, crashed=%v)\nstdout:\n%s\nstderr:\n%s",
				candidatePath, code, crashed, stdout.String(), stderr.String())
		}
		return Result{Interesting: false, ExitCode: code, Crashed: crashed}, nil
	}

	// Could not even start the oracle (e.g. not executable). This is not a
	// candidate rejection, it is a configuration problem the caller should
	// surface as fatal.
	return Result{}, err
}

// Worker is one speculatively forked oracle invocation, placed in its own
// process group so a single signal reaches anything it spawned. It is started
// asynchronously so the delta loop can keep filling the in-flight list
// while earlier workers are still running, then reaped later via Wait.
type Worker struct {
	cmd     *exec.Cmd
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	verbose bool
	path    string
}

// Start forks the oracle against candidatePath in its own process group
// and returns immediately without waiting for it to exit.
func (r *Runner) Start(ctx context.Context, dir, candidatePath string) (*Worker, error) {
	cmd := exec.CommandContext(ctx, r.Script, candidatePath)
	cmd.Dir = dir
	procgroup.Setup(cmd)

	w := &Worker{cmd: cmd, verbose: r.Verbose, path: candidatePath}
	if r.Verbose {
		cmd.Stdout = &w.stdout
		cmd.Stderr = &w.stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	logging.OracleDebug("forked oracle worker pid=%d for %s", cmd.Process.Pid, candidatePath)
	return w, nil
}

// Pid returns the worker's process id, stable for its whole lifetime.
func (w *Worker) Pid() int {
	if w.cmd.Process == nil {
		return 0
	}
	return w.cmd.Process.Pid
}

// Kill terminates this worker's entire process group, so any sub-processes
// the oracle spawned die with it.
func (w *Worker) Kill() error {
	return procgroup.Kill(w.Pid())
}

// Wait blocks until the worker exits and returns its verdict. A non-clean
// exit (signal death, launch failure after Start already succeeded) is
// folded into "not interesting" rather than surfaced as an error.
func (w *Worker) Wait() Result {
	err := w.cmd.Wait()
	if err == nil {
		logging.OracleDebug("oracle worker pid=%d accepted %s", w.Pid(), w.path)
		return Result{Interesting: true, ExitCode: 0}
	}

	var exitErr *exec.ExitError
	if asExitError(err, &exitErr) {
		code := exitErr.ExitCode()
		crashed := signaled(exitErr)
		if w.verbose {
			logging.OracleDebug("oracle worker pid=%d rejected %s (exit=%d, crashed=%v)\nstdout:\n%s\nstderr:\n%s",
				w.Pid(), w.path, code, crashed, w.stdout.String(), w.stderr.String())
		}
		return Result{Interesting: false, ExitCode: code, Crashed: crashed}
	}

	// cmd.Wait failed in a way that isn't a normal exit (e.g. killed by us,
	// or a wait4 error). Treat as a crashed, rejected candidate rather than
	// propagating a Go error.
	logging.OracleDebug("oracle worker pid=%d wait error for %s: %v", w.Pid(), w.path, err)
	return Result{Interesting: false, ExitCode: -1, Crashed: true}
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

// signaled reports whether the oracle process died from a signal rather
// than calling exit() itself.
func signaled(ee *exec.ExitError) bool {
	ws, ok := ee.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled()
}
