//go:build linux

package servant

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// scanSupported reports whether process scanning works on this platform
const scanSupported = true

type procEntry struct {
	pid  int
	proc procfs.Proc
}

// environ reads the process environment. Processes that exited or belong to
// another user are reported as unreadable.
func (p procEntry) environ() ([]string, bool) {
	env, err := p.proc.Environ()
	if err != nil {
		return nil, false
	}
	return env, true
}

func (s *Scanner) fs() (procfs.FS, error) {
	fs, err := procfs.NewFS(s.ProcRoot)
	if err != nil {
		return procfs.FS{}, fmt.Errorf("opening %s: %w", s.ProcRoot, err)
	}
	return fs, nil
}

func (s *Scanner) processes() ([]procEntry, error) {
	fs, err := s.fs()
	if err != nil {
		return nil, err
	}
	procs, err := fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	entries := make([]procEntry, 0, len(procs))
	for _, p := range procs {
		entries = append(entries, procEntry{pid: p.PID, proc: p})
	}
	return entries, nil
}

// zombies collects the pids whose procfs state is Z
func (s *Scanner) zombies() (map[int]struct{}, error) {
	procs, err := s.processes()
	if err != nil {
		return nil, err
	}

	pids := make(map[int]struct{})
	for _, p := range procs {
		stat, err := p.proc.Stat()
		if err != nil {
			continue
		}
		if stat.State == "Z" {
			pids[p.pid] = struct{}{}
		}
	}
	return pids, nil
}

// processZombie reports whether pid is a zombie according to procfs
func processZombie(root string, pid int) bool {
	fs, err := procfs.NewFS(root)
	if err != nil {
		return false
	}
	p, err := fs.Proc(pid)
	if err != nil {
		return false
	}
	stat, err := p.Stat()
	if err != nil {
		return false
	}
	return stat.State == "Z"
}
