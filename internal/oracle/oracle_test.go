package oracle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// writeScript creates an executable shell script in dir that runs body,
// ignoring its candidate-file argument.
func writeScript(t *testing.T, dir, name string, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func TestRun_AcceptsOnExitZero(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	script := writeScript(t, dir, "accept.sh", "exit 0\n")
	candidate := filepath.Join(dir, "candidate.txt")
	require.NoError(t, os.WriteFile(candidate, []byte("x"), 0644))

	r := New(script, false)
	res, err := r.Run(context.Background(), dir, candidate)
	require.NoError(t, err)
	assert.True(t, res.Interesting)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Crashed)
}

func TestRun_RejectsOnNonZeroExit(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	script := writeScript(t, dir, "reject.sh", "exit 1\n")
	candidate := filepath.Join(dir, "candidate.txt")
	require.NoError(t, os.WriteFile(candidate, []byte("x"), 0644))

	r := New(script, false)
	res, err := r.Run(context.Background(), dir, candidate)
	require.NoError(t, err)
	assert.False(t, res.Interesting)
	assert.Equal(t, 1, res.ExitCode)
	assert.False(t, res.Crashed)
}

func TestRun_SignalDeathIsCrashNotError(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	script := writeScript(t, dir, "crash.sh", "kill -ABRT $$\n")
	candidate := filepath.Join(dir, "candidate.txt")
	require.NoError(t, os.WriteFile(candidate, []byte("x"), 0644))

	r := New(script, false)
	res, err := r.Run(context.Background(), dir, candidate)
	require.NoError(t, err)
	assert.False(t, res.Interesting)
	assert.True(t, res.Crashed)
}

func TestStartWait_MirrorsRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	script := writeScript(t, dir, "accept.sh", "exit 0\n")
	candidate := filepath.Join(dir, "candidate.txt")
	require.NoError(t, os.WriteFile(candidate, []byte("x"), 0644))

	r := New(script, false)
	w, err := r.Start(context.Background(), dir, candidate)
	require.NoError(t, err)
	assert.Greater(t, w.Pid(), 0)

	res := w.Wait()
	assert.True(t, res.Interesting)
}

func TestWorker_KillStopsLongRunningOracle(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	script := writeScript(t, dir, "sleep.sh", "sleep 30\n")
	candidate := filepath.Join(dir, "candidate.txt")
	require.NoError(t, os.WriteFile(candidate, []byte("x"), 0644))

	r := New(script, false)
	w, err := r.Start(context.Background(), dir, candidate)
	require.NoError(t, err)

	require.NoError(t, w.Kill())
	res := w.Wait()
	assert.False(t, res.Interesting)
	assert.True(t, res.Crashed)
}
