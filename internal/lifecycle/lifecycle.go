// Package lifecycle installs the terminating-signal handler: it records
// the root process id at startup, and on TERM/INT/HUP/PIPE tears down
// in-flight workers and scratch directories before exiting, unless the
// receiving process is a forked worker, in which case it must exit
// silently and never touch shared state.
package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rgov/creduce/internal/logging"
	"github.com/rgov/creduce/internal/scratch"
)

// Teardown is invoked once, from the signal handler goroutine, when this
// process is the root and a terminating signal arrives.
type Teardown func()

// Handler owns the root-process check and the installed signal handler.
type Handler struct {
	rootPID int
	scratch *scratch.Workspace
	workDir string

	mu       sync.Mutex
	teardown Teardown
	sigCh    chan os.Signal
	done     chan struct{}
}

// New records the current process as root and remembers the working
// directory the orchestrator started in, so teardown can restore it
// before removing scratch directories.
func New(ws *scratch.Workspace) *Handler {
	wd, _ := os.Getwd()
	return &Handler{
		rootPID: os.Getpid(),
		scratch: ws,
		workDir: wd,
	}
}

// IsRoot reports whether the current OS process is the one that called
// New: false inside a forked oracle worker, which must never run
// teardown and instead exits silently.
func (h *Handler) IsRoot() bool { return os.Getpid() == h.rootPID }

// SetTeardown registers the callback Install's signal handler runs before
// restoring the working directory and removing scratch directories. It is
// typically set to a function that kills any in-flight worker process
// groups the engine currently knows about.
func (h *Handler) SetTeardown(fn Teardown) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.teardown = fn
}

// Install starts listening for TERM, INT, HUP and PIPE. It returns a
// Stop function the caller must defer to release the signal channel on a
// normal exit path.
func (h *Handler) Install() (stop func()) {
	h.sigCh = make(chan os.Signal, 1)
	h.done = make(chan struct{})
	signal.Notify(h.sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP, syscall.SIGPIPE)

	go h.run()

	return func() {
		signal.Stop(h.sigCh)
		close(h.done)
	}
}

func (h *Handler) run() {
	select {
	case sig := <-h.sigCh:
		h.handle(sig)
	case <-h.done:
	}
}

func (h *Handler) handle(sig os.Signal) {
	if !h.IsRoot() {
		os.Exit(0)
	}

	logging.Get(logging.CategoryLifecycle).Warn("caught signal %s, tearing down", sig)

	h.mu.Lock()
	teardown := h.teardown
	h.mu.Unlock()
	if teardown != nil {
		teardown()
	}

	if h.workDir != "" {
		_ = os.Chdir(h.workDir)
	}
	h.scratch.RemoveAllScratch()

	os.Exit(1)
}
