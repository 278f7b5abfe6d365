package servant

import (
	"context"
	"time"

	"github.com/axondata/go-servant/internal/unix"
)

// Handle identifies one worker process. It is a snapshot taken when the
// worker was spawned or discovered; liveness must be checked explicitly.
// Handles compare equal when all three fields match. A zero PID marks an
// inert handle whose process has been terminated.
type Handle struct {
	Name string
	PID  int
	Port int
}

// Attach builds a handle for a discovered worker from its tag and pid
func Attach(tag string, pid int) (Handle, error) {
	name, port, err := DecodeTag(tag)
	if err != nil {
		return Handle{}, err
	}
	return Handle{Name: name, PID: pid, Port: port}, nil
}

// Tag returns the environment entry that identifies this worker
func (h Handle) Tag() string {
	return EncodeTag(h.Name, h.Port)
}

// IsAlive reports whether the handle has a pid and that process still
// exists. Exited but unreaped processes count as dead.
func (h Handle) IsAlive() bool {
	return pidAlive(h.PID)
}

// Interrupt sends SIGINT to the worker without waiting for it to exit.
// Signalling a process that is already gone is not an error.
func (h Handle) Interrupt() error {
	if h.PID == 0 {
		return nil
	}
	if err := unix.Interrupt(h.PID); err != nil {
		return &OpError{Op: OpTerminate, Name: h.Name, Err: err}
	}
	return nil
}

// Terminate interrupts the worker, clears the handle's pid and then polls
// every interval until the process has exited. The wait has no deadline of
// its own; cancelling ctx abandons the wait but not the termination.
func (h *Handle) Terminate(ctx context.Context, interval time.Duration) error {
	pid := h.PID
	if pid == 0 {
		return nil
	}
	if err := h.Interrupt(); err != nil {
		return err
	}
	h.PID = 0

	return waitExit(ctx, pid, interval)
}

// waitExit polls until pid no longer exists
func waitExit(ctx context.Context, pid int, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for pidAlive(pid) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if !unix.Exists(pid) {
		return false
	}
	return !processZombie(DefaultProcRoot, pid)
}
