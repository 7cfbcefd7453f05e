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

func TestBalanced_DeletesBalancedSpan(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("a(b(c)d)e"), 0644))

	var b Balanced
	state, err := b.New(ctx, path, "paren")
	require.NoError(t, err)

	outcome, _, err := b.Transform(ctx, path, "paren", state)
	require.NoError(t, err)
	assert.Equal(t, pass.OK, outcome)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ae", string(data))
}

func TestBalanced_UnknownBracketArgErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	var b Balanced
	state, err := b.New(ctx, path, "curly")
	require.NoError(t, err)

	_, _, err = b.Transform(ctx, path, "not-a-bracket", state)
	assert.Error(t, err)
}

func TestBalanced_StopsWhenNoSpanFound(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("no brackets here"), 0644))

	var b Balanced
	state, err := b.New(ctx, path, "curly")
	require.NoError(t, err)

	outcome, _, err := b.Transform(ctx, path, "curly", state)
	require.NoError(t, err)
	assert.Equal(t, pass.Stop, outcome)
}
