//go:build !linux && !darwin

// Package unix provides platform-specific process signalling helpers.
package unix

import (
	"errors"
	"os/exec"
)

// Supported reports whether process signalling is available on this platform.
const Supported = false

var errUnsupported = errors.New("process signalling not supported on this platform")

// Exists always reports false on this platform.
func Exists(pid int) bool { return false }

// Interrupt is not supported on this platform.
func Interrupt(pid int) error { return errUnsupported }

// Terminate is not supported on this platform.
func Terminate(pid int) error { return errUnsupported }

// Kill is not supported on this platform.
func Kill(pid int) error { return errUnsupported }

// Detach is a no-op on this platform.
func Detach(cmd *exec.Cmd) {}
