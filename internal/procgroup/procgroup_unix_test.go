//go:build !windows

package procgroup

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_PlacesCommandInItsOwnProcessGroup(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	Setup(cmd)
	require.NoError(t, cmd.Start())
	defer cmd.Process.Kill()

	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)
}

func TestKill_TerminatesTheWholeGroup(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	Setup(cmd)
	require.NoError(t, cmd.Start())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	require.NoError(t, Kill(cmd.Process.Pid))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process was not killed")
	}
}

func TestKill_NonPositivePidIsNoop(t *testing.T) {
	assert.NoError(t, Kill(0))
	assert.NoError(t, Kill(-1))
}
