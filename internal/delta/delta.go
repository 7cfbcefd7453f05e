// Package delta implements the speculative parallel search loop that
// drives a single pass invocation to its terminal condition. It is the
// heart of the driver: it owns the in-flight list of speculatively
// forked oracle workers, consumes their results strictly in submission
// order regardless of completion order, and is the only place a
// candidate is ever promoted to the best file.
package delta

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/rgov/creduce/internal/best"
	"github.com/rgov/creduce/internal/cache"
	"github.com/rgov/creduce/internal/logging"
	"github.com/rgov/creduce/internal/oracle"
	"github.com/rgov/creduce/internal/pass"
	"github.com/rgov/creduce/internal/scratch"
)

// Counters accumulates per-trial progress statistics (trials accepted,
// trials rejected, and which sub-pass was responsible for each).
// A Loop owns one Counters value per pass invocation; engine sums them
// across invocations for the final report.
type Counters struct {
	GoodCnt      int
	BadCnt       int
	SinceSuccess int
	MethodWorked map[string]map[string]int
	MethodFailed map[string]map[string]int
}

// NewCounters returns a zeroed Counters ready to accumulate.
func NewCounters() Counters {
	return Counters{
		MethodWorked: make(map[string]map[string]int),
		MethodFailed: make(map[string]map[string]int),
	}
}

func (c *Counters) recordWorked(name, arg string) {
	if c.MethodWorked[name] == nil {
		c.MethodWorked[name] = make(map[string]int)
	}
	c.MethodWorked[name][arg]++
}

func (c *Counters) recordFailed(name, arg string) {
	if c.MethodFailed[name] == nil {
		c.MethodFailed[name] = make(map[string]int)
	}
	c.MethodFailed[name][arg]++
}

// Merge folds other into c, summing counters and per-method tallies.
func (c *Counters) Merge(other Counters) {
	c.GoodCnt += other.GoodCnt
	c.BadCnt += other.BadCnt
	for name, args := range other.MethodWorked {
		for arg, n := range args {
			if c.MethodWorked[name] == nil {
				c.MethodWorked[name] = make(map[string]int)
			}
			c.MethodWorked[name][arg] += n
		}
	}
	for name, args := range other.MethodFailed {
		for arg, n := range args {
			if c.MethodFailed[name] == nil {
				c.MethodFailed[name] = make(map[string]int)
			}
			c.MethodFailed[name][arg] += n
		}
	}
}

// Loop drives one pass (name, arg) against a shared best file and scratch
// workspace. A Loop is not reused across pass invocations; callers build a
// fresh one per call to Run.
type Loop struct {
	Best    *best.File
	Scratch *scratch.Workspace
	Runner  *oracle.Runner

	Workers     int
	Fuzz        bool
	GiveupAfter int // registry.GiveupOff disables this check

	// Cache, if set, short-circuits the oracle for a candidate whose
	// content was already judged earlier in this run.
	Cache *cache.Cache

	PrintProgress func(c Counters, bestSize int64)
	// PrintDiff, if set, is called with the best file's bytes before and
	// after each accepted candidate is committed.
	PrintDiff func(before, after []byte)
}

// variant is one entry in the in-flight list: a speculatively forked
// oracle worker plus the pre-advance pass state to roll back to if it's
// accepted.
type variant struct {
	id          int
	dir         string
	path        string
	worker      *oracle.Worker
	preState    pass.State
	done        bool
	result      oracle.Result
	cacheKey    cache.Key
	hasCacheKey bool
}

type completion struct {
	id     int
	result oracle.Result
}

// Run drives impl through pass (name, arg) to its terminal condition:
// fill workers up to the concurrency limit, drain completed
// head-of-list variants in submission order, reap one worker at a time,
// and stop on either pass exhaustion or the give-up heuristic.
func (l *Loop) Run(ctx context.Context, impl pass.Pass, name, arg string) (Counters, error) {
	counters := NewCounters()

	dir, err := l.Scratch.MakeScratch()
	if err != nil {
		return counters, fmt.Errorf("delta: initial scratch dir: %w", err)
	}
	path := l.pathIn(dir)
	if err := l.Best.CopyInto(path); err != nil {
		l.Scratch.Release(dir)
		return counters, fmt.Errorf("delta: seed initial candidate: %w", err)
	}

	state, err := impl.New(ctx, path, arg)
	if err != nil {
		l.Scratch.Release(dir)
		return counters, fmt.Errorf("delta: new(%s/%s): %w", name, arg, err)
	}
	l.Scratch.Release(dir)

	stopped := false
	inFlight := make([]*variant, 0, l.workers())
	byID := make(map[int]*variant, l.workers())
	completions := make(chan completion, l.workers()+1)
	nextID := 0

	// wg tracks the goroutine draining each forked worker's Wait() into
	// completions, so cleanup can be sure none are left running against a
	// scratch dir we're about to remove.
	var wg errgroup.Group

	cleanup := func() {
		for _, v := range inFlight {
			if !v.done {
				_ = v.worker.Kill()
			}
		}
		_ = wg.Wait()
		for _, v := range inFlight {
			l.Scratch.Release(v.dir)
		}
		inFlight = nil
	}

	for {
		// Step 1: fill workers.
		for !stopped && len(inFlight) < l.workers() {
			vdir, err := l.Scratch.MakeScratch()
			if err != nil {
				cleanup()
				return counters, fmt.Errorf("delta: scratch dir: %w", err)
			}
			vpath := l.pathIn(vdir)
			if err := l.Best.CopyInto(vpath); err != nil {
				l.Scratch.Release(vdir)
				cleanup()
				return counters, fmt.Errorf("delta: seed candidate: %w", err)
			}

			outcome, newState, err := impl.Transform(ctx, vpath, arg, state)
			if err != nil {
				l.Scratch.Release(vdir)
				cleanup()
				return counters, fmt.Errorf("delta: transform(%s/%s): %w", name, arg, err)
			}
			if outcome == pass.Stop {
				l.Scratch.Release(vdir)
				stopped = true
				break
			}

			state = newState
			preState := state
			for l.Fuzz && rand.Float64() < 0.5 {
				state, err = impl.Advance(ctx, vpath, arg, state)
				if err != nil {
					l.Scratch.Release(vdir)
					cleanup()
					return counters, fmt.Errorf("delta: fuzz advance(%s/%s): %w", name, arg, err)
				}
			}
			state, err = impl.Advance(ctx, vpath, arg, state)
			if err != nil {
				l.Scratch.Release(vdir)
				cleanup()
				return counters, fmt.Errorf("delta: advance(%s/%s): %w", name, arg, err)
			}

			var key cache.Key
			var hasKey bool
			if l.Cache != nil {
				if k, err := cache.KeyOf(vpath); err == nil {
					key, hasKey = k, true
					if interesting, ok := l.Cache.Lookup(key); ok {
						v := &variant{
							id: nextID, dir: vdir, path: vpath, preState: preState,
							done: true, result: oracle.Result{Interesting: interesting},
							cacheKey: key, hasCacheKey: true,
						}
						nextID++
						inFlight = append(inFlight, v)
						byID[v.id] = v
						continue
					}
				}
			}

			worker, err := l.Runner.Start(ctx, vdir, vpath)
			if err != nil {
				l.Scratch.Release(vdir)
				cleanup()
				return counters, fmt.Errorf("delta: fork oracle worker: %w", err)
			}

			v := &variant{id: nextID, dir: vdir, path: vpath, worker: worker, preState: preState, cacheKey: key, hasCacheKey: hasKey}
			nextID++
			inFlight = append(inFlight, v)
			byID[v.id] = v

			wg.Go(func() error {
				res := v.worker.Wait()
				completions <- completion{id: v.id, result: res}
				return nil
			})
		}

		// Step 2: drain finished head-of-list variants, in order.
		for len(inFlight) > 0 && inFlight[0].done {
			v := inFlight[0]
			inFlight = inFlight[1:]
			delete(byID, v.id)

			if l.Cache != nil && v.hasCacheKey {
				l.Cache.Record(v.cacheKey, v.result.Interesting)
			}

			if v.result.Interesting {
				logging.EngineDebug("pass %s/%s accepted candidate from %s", name, arg, v.path)

				// Cancel every other in-flight worker; the state line they
				// speculated from is now invalid.
				for _, other := range inFlight {
					if !other.done {
						_ = other.worker.Kill()
					}
					l.Scratch.Release(other.dir)
					delete(byID, other.id)
				}
				inFlight = inFlight[:0]

				var before []byte
				if l.PrintDiff != nil {
					before, _ = os.ReadFile(l.Best.Path())
				}

				if err := l.Best.Accept(v.path); err != nil {
					l.Scratch.Release(v.dir)
					cleanup()
					return counters, fmt.Errorf("delta: commit accepted candidate: %w", err)
				}

				if l.PrintDiff != nil {
					if after, err := os.ReadFile(v.path); err == nil {
						l.PrintDiff(before, after)
					}
				}
				l.Scratch.Release(v.dir)

				state = v.preState
				counters.GoodCnt++
				counters.SinceSuccess = 0
				counters.recordWorked(name, arg)
				stopped = false

				if l.PrintProgress != nil {
					if sz, err := l.Best.Size(); err == nil {
						l.PrintProgress(counters, sz)
					}
				}
			} else {
				counters.BadCnt++
				counters.SinceSuccess++
				counters.recordFailed(name, arg)
				l.Scratch.Release(v.dir)
			}
		}

		// Step 4: give-up heuristic.
		if l.GiveupAfter >= 0 && counters.SinceSuccess > l.GiveupAfter {
			logging.Engine("pass %s/%s gave up after %d trials without success", name, arg, counters.SinceSuccess)
			cleanup()
			return counters, nil
		}

		// Step 5: termination.
		if stopped && len(inFlight) == 0 {
			return counters, nil
		}

		// Step 3: reap one worker if any remain in flight, discarding
		// completions for variants already cancelled above.
		if len(inFlight) > 0 {
			for {
				select {
				case <-ctx.Done():
					cleanup()
					return counters, ctx.Err()
				case c := <-completions:
					v, ok := byID[c.id]
					if !ok {
						continue
					}
					v.result = c.result
					v.done = true
				}
				break
			}
		}
	}
}

func (l *Loop) workers() int {
	if l.Workers <= 0 {
		return 1
	}
	return l.Workers
}

func (l *Loop) pathIn(dir string) string {
	return filepath.Join(dir, l.Best.BaseName())
}
