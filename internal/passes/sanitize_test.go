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

func TestSanitize_CollapsesHorizontalWhitespaceOnce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("a   b\t\tc"), 0644))

	var s Sanitize
	state, err := s.New(ctx, path, "whitespace")
	require.NoError(t, err)

	outcome, state, err := s.Transform(ctx, path, "whitespace", state)
	require.NoError(t, err)
	assert.Equal(t, pass.OK, outcome)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "a b c", string(data))

	state, err = s.Advance(ctx, path, "whitespace", state)
	require.NoError(t, err)
	outcome, _, err = s.Transform(ctx, path, "whitespace", state)
	require.NoError(t, err)
	assert.Equal(t, pass.Stop, outcome)
}

func TestSanitize_StopsImmediatelyWhenAlreadyClean(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("a b c"), 0644))

	var s Sanitize
	state, err := s.New(ctx, path, "whitespace")
	require.NoError(t, err)

	outcome, _, err := s.Transform(ctx, path, "whitespace", state)
	require.NoError(t, err)
	assert.Equal(t, pass.Stop, outcome, "a no-op transform must not report OK, or the delta loop's accept-rollback spins forever")

	data, _ := os.ReadFile(path)
	assert.Equal(t, "a b c", string(data))
}
