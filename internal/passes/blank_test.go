package passes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgov/creduce/internal/pass"
)

func TestBlank_StripsBlankLinesOnceThenStops(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\n\nb\n   \nc\n"), 0644))

	var b Blank
	state, err := b.New(ctx, path, "")
	require.NoError(t, err)

	outcome, state, err := b.Transform(ctx, path, "", state)
	require.NoError(t, err)
	assert.Equal(t, pass.OK, outcome)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "a\nb\nc\n", string(data))

	state, err = b.Advance(ctx, path, "", state)
	require.NoError(t, err)
	outcome, _, err = b.Transform(ctx, path, "", state)
	require.NoError(t, err)
	assert.Equal(t, pass.Stop, outcome)
}

func TestBlank_StopsImmediatelyWhenNoBlankLinesPresent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\n"), 0644))

	var b Blank
	state, err := b.New(ctx, path, "")
	require.NoError(t, err)

	outcome, _, err := b.Transform(ctx, path, "", state)
	require.NoError(t, err)
	assert.Equal(t, pass.Stop, outcome, "a no-op transform must not report OK, or the delta loop's accept-rollback spins forever")

	data, _ := os.ReadFile(path)
	assert.Equal(t, "a\nb\nc\n", string(data))
}
