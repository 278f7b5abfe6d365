package servant

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// DefunctFunc returns the set of pids that have exited but not been reaped.
type DefunctFunc func(ctx context.Context) (map[int]struct{}, error)

// DefaultPSPath is the process listing binary used by PSDefunct
const DefaultPSPath = "ps"

var leadingPID = regexp.MustCompile(`\d+`)

// PSDefunct lists processes with ps and collects the pids marked as zombies.
func PSDefunct(ctx context.Context) (map[int]struct{}, error) {
	// #nosec G204 -- fixed binary and arguments
	out, err := exec.CommandContext(ctx, DefaultPSPath, "-eo", "pid=,stat=,comm=").Output()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}
	return ParseDefunct(out), nil
}

// ParseDefunct extracts zombie pids from process listing output. A line is a
// zombie when it carries the <defunct> marker or its state column starts with
// Z; the first number on the line is taken as the pid.
func ParseDefunct(listing []byte) map[int]struct{} {
	pids := make(map[int]struct{})

	sc := bufio.NewScanner(bytes.NewReader(listing))
	for sc.Scan() {
		line := sc.Text()
		if !isZombieLine(line) {
			continue
		}
		m := leadingPID.FindString(line)
		if m == "" {
			continue
		}
		if pid, err := strconv.Atoi(m); err == nil {
			pids[pid] = struct{}{}
		}
	}
	return pids
}

func isZombieLine(line string) bool {
	if strings.Contains(line, "<defunct>") {
		return true
	}
	fields := strings.Fields(line)
	return len(fields) >= 2 && strings.HasPrefix(fields[1], "Z")
}
