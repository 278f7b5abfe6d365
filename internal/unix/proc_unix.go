//go:build linux || darwin

// Package unix provides platform-specific process signalling helpers.
package unix

import (
	"errors"
	"os/exec"
	"syscall"

	sysunix "golang.org/x/sys/unix"
)

// Supported reports whether process signalling is available on this platform.
const Supported = true

// Exists reports whether a process with the given pid currently exists.
// A pid owned by another user still exists (EPERM).
func Exists(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := sysunix.Kill(pid, 0)
	return err == nil || errors.Is(err, sysunix.EPERM)
}

// Interrupt sends SIGINT to pid. A pid that no longer exists is not an error.
func Interrupt(pid int) error {
	return signal(pid, sysunix.SIGINT)
}

// Terminate sends SIGTERM to pid. A pid that no longer exists is not an error.
func Terminate(pid int) error {
	return signal(pid, sysunix.SIGTERM)
}

// Kill sends SIGKILL to pid. A pid that no longer exists is not an error.
func Kill(pid int) error {
	return signal(pid, sysunix.SIGKILL)
}

func signal(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	if err := sysunix.Kill(pid, sig); err != nil && !errors.Is(err, sysunix.ESRCH) {
		return err
	}
	return nil
}

// Detach places cmd in its own process group so it outlives the caller's
// terminal session and does not receive the caller's job-control signals.
func Detach(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}
