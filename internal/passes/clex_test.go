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

func TestClex_RemovesWholeToken(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("foo bar baz"), 0644))

	var c Clex
	state, err := c.New(ctx, path, "rm-token")
	require.NoError(t, err)

	outcome, _, err := c.Transform(ctx, path, "rm-token", state)
	require.NoError(t, err)
	assert.Equal(t, pass.OK, outcome)

	data, _ := os.ReadFile(path)
	assert.Equal(t, " bar baz", string(data))
}

func TestClex_PatternModeAlsoStripsTrailingPunct(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("foo, bar"), 0644))

	var c Clex
	state, err := c.New(ctx, path, "rm-token-pattern")
	require.NoError(t, err)

	outcome, _, err := c.Transform(ctx, path, "rm-token-pattern", state)
	require.NoError(t, err)
	assert.Equal(t, pass.OK, outcome)

	data, _ := os.ReadFile(path)
	assert.Equal(t, " bar", string(data))
}

func TestClex_StopsWhenNoMoreTokens(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("   "), 0644))

	var c Clex
	state, err := c.New(ctx, path, "rm-token")
	require.NoError(t, err)

	outcome, _, err := c.Transform(ctx, path, "rm-token", state)
	require.NoError(t, err)
	assert.Equal(t, pass.Stop, outcome)
}
