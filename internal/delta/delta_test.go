package delta

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rgov/creduce/internal/best"
	"github.com/rgov/creduce/internal/oracle"
	"github.com/rgov/creduce/internal/pass"
	"github.com/rgov/creduce/internal/passes"
	"github.com/rgov/creduce/internal/registry"
	"github.com/rgov/creduce/internal/scratch"
)

func writeOracle(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "oracle.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

// newFixture wires a Loop over a real scratch workspace, best file, and
// oracle process for the byte-deletion seed scenarios.
func newFixture(t *testing.T, input, oracleBody string, workers int) (*Loop, *best.File) {
	t.Helper()
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "artifact.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0644))

	ws := scratch.New(dir, false)
	script := writeOracle(t, dir, oracleBody)
	runner := oracle.New(script, false)

	f, err := best.New(inputPath, inputPath+".best", ws, runner)
	require.NoError(t, err)

	return &Loop{
		Best:        f,
		Scratch:     ws,
		Runner:      runner,
		Workers:     workers,
		GiveupAfter: registry.GiveupOff,
	}, f
}

func TestRun_ParallelismMatchesSequentialResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Oracle accepts iff the candidate still contains the byte 'Q'.
	oracleBody := `grep -q Q "$1" && exit 0 || exit 1` + "\n"

	resultFor := func(workers int) string {
		loop, f := newFixture(t, "ABQCDE", oracleBody, workers)
		_, err := loop.Run(context.Background(), passes.Chars{}, "chars", "")
		require.NoError(t, err)
		data, err := os.ReadFile(f.Path())
		require.NoError(t, err)
		return string(data)
	}

	seq := resultFor(1)
	par := resultFor(4)

	assert.Equal(t, "Q", seq)
	assert.Equal(t, seq, par)
}

func TestRun_StopOutcomeTerminatesWithoutError(t *testing.T) {
	defer goleak.VerifyNone(t)

	loop, f := newFixture(t, "", "exit 0\n", 2)
	counters, err := loop.Run(context.Background(), passes.Chars{}, "chars", "")
	require.NoError(t, err)
	assert.Equal(t, 0, counters.GoodCnt)
	assert.Equal(t, 0, counters.BadCnt)
	assert.NotEmpty(t, f.Path())
}

// alwaysOK never stops producing candidates and never meaningfully shrinks
// the file, used to drive the give-up heuristic without relying on a pass
// that happens to exhaust its search space.
type alwaysOK struct{}

func (alwaysOK) CheckPrereqs(ctx context.Context) error { return nil }
func (alwaysOK) New(ctx context.Context, path, arg string) (pass.State, error) { return 0, nil }
func (alwaysOK) Transform(ctx context.Context, path, arg string, state pass.State) (pass.Outcome, pass.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pass.Stop, state, err
	}
	if len(data) == 0 {
		return pass.OK, state, nil
	}
	if err := os.WriteFile(path, data[1:], 0644); err != nil {
		return pass.Stop, state, err
	}
	return pass.OK, state, nil
}
func (alwaysOK) Advance(ctx context.Context, path, arg string, state pass.State) (pass.State, error) {
	return state, nil
}

func TestRun_GivesUpAfterTooManyRejectionsWithoutSuccess(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "artifact.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte("x"), 0644))

	ws := scratch.New(dir, false)
	rejectAll := writeOracle(t, dir, "exit 1\n")
	runner := oracle.New(rejectAll, false)

	f, err := best.New(inputPath, inputPath+".best", ws, runner)
	require.NoError(t, err)

	loop := &Loop{
		Best:        f,
		Scratch:     ws,
		Runner:      runner,
		Workers:     2,
		GiveupAfter: 5,
	}

	counters, err := loop.Run(context.Background(), alwaysOK{}, "always", "")
	require.NoError(t, err)
	assert.Greater(t, counters.BadCnt, 5)
	assert.Equal(t, 0, counters.GoodCnt)
	assert.Empty(t, ws.Paths())
}
