package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgov/creduce/internal/scratch"
)

func TestNew_RecordsCurrentProcessAsRoot(t *testing.T) {
	ws := scratch.New(t.TempDir(), false)
	h := New(ws)
	assert.True(t, h.IsRoot())
}

func TestInstall_StopReleasesSignalChannelWithoutFiring(t *testing.T) {
	ws := scratch.New(t.TempDir(), false)
	h := New(ws)

	fired := false
	h.SetTeardown(func() { fired = true })

	stop := h.Install()
	require.NotNil(t, stop)
	stop()

	assert.False(t, fired, "teardown must not run on a clean shutdown")
}
