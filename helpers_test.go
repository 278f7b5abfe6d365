//go:build linux

package servant

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/require"
)

var (
	toolAvailability   = make(map[string]bool)
	toolAvailabilityMu sync.Mutex
)

// RequireTool skips the test if the tool is not available in PATH
func RequireTool(t *testing.T, toolName string) {
	t.Helper()
	toolAvailabilityMu.Lock()
	available, ok := toolAvailability[toolName]
	if !ok {
		_, err := exec.LookPath(toolName)
		available = err == nil
		toolAvailability[toolName] = available
	}
	toolAvailabilityMu.Unlock()
	if !available {
		t.Skipf("%s not found in PATH, skipping test", toolName)
	}
}

// SkipIfShort skips the test if running in short mode
func SkipIfShort(t *testing.T, reason string) {
	t.Helper()
	if testing.Short() {
		t.Skipf("Skipping in short mode: %s", reason)
	}
}

// randomMarker returns a prefix no other process on the host carries
func randomMarker(t *testing.T, prefix string) string {
	t.Helper()
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("random marker: %v", err)
	}
	return prefix + hex.EncodeToString(b)
}

// uniqueServiceName returns a dotted service name that resolves to
// DemoService and cannot collide with workers from other test runs
func uniqueServiceName(t *testing.T) string {
	t.Helper()
	return randomMarker(t, "t") + ".DemoService"
}

// startTagged starts a sleeping process carrying the given environment
// entries. The process is killed and reaped when the test ends.
func startTagged(t *testing.T, env ...string) *exec.Cmd {
	t.Helper()
	RequireTool(t, "sleep")
	return startProcess(t, env, "sleep", "30")
}

// startTrapping starts a sleeping process that ignores SIGINT
func startTrapping(t *testing.T) *exec.Cmd {
	t.Helper()
	RequireTool(t, "sh")
	RequireTool(t, "sleep")

	cmd := startProcess(t, nil, "sh", "-c", "trap '' INT; exec sleep 30")
	require.Eventually(t, func() bool {
		p, err := procfs.NewProc(cmd.Process.Pid)
		if err != nil {
			return false
		}
		comm, err := p.Comm()
		return err == nil && comm == "sleep"
	}, 5*time.Second, 10*time.Millisecond, "shell never exec'd sleep")
	return cmd
}

func startProcess(t *testing.T, env []string, name string, args ...string) *exec.Cmd {
	t.Helper()

	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), env...)
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start tagged process: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Logf("tagged process %d not reaped", cmd.Process.Pid)
		}
	})
	return cmd
}
