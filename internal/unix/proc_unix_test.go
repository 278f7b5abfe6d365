//go:build linux || darwin

package unix

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExistsSelf(t *testing.T) {
	if !Exists(os.Getpid()) {
		t.Fatal("current process should exist")
	}
	if Exists(0) || Exists(-1) {
		t.Error("non-positive pids never exist")
	}
}

func TestInterruptExitedProcess(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	Detach(cmd)
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid

	require.NoError(t, Interrupt(pid))
	_ = cmd.Wait()

	require.Eventually(t, func() bool { return !Exists(pid) }, 2*time.Second, 10*time.Millisecond)

	// Signalling a reaped pid is tolerated.
	require.NoError(t, Interrupt(pid))
	require.NoError(t, Kill(pid))
}
