package servant

import (
	"context"
	"regexp"
	"sort"

	"go.uber.org/zap"
)

// Scanner finds worker processes by matching patterns against the
// environment blocks of live processes. It is the default discovery Source.
type Scanner struct {
	// ProcRoot is the procfs mount point
	ProcRoot string

	// Pattern selects the environment entries Tagged reports
	Pattern *regexp.Regexp

	// Defunct computes the zombie set excluded from matching. Nil means
	// the process state recorded in procfs is used.
	Defunct DefunctFunc

	logger *zap.Logger
}

// ScannerOption configures a Scanner
type ScannerOption func(*Scanner)

// WithProcRoot sets the procfs mount point
func WithProcRoot(root string) ScannerOption {
	return func(s *Scanner) {
		s.ProcRoot = root
	}
}

// WithPattern sets the pattern Tagged matches, TagPattern by default
func WithPattern(pattern *regexp.Regexp) ScannerOption {
	return func(s *Scanner) {
		if pattern != nil {
			s.Pattern = pattern
		}
	}
}

// WithDefunct sets the zombie detection strategy, e.g. PSDefunct
func WithDefunct(fn DefunctFunc) ScannerOption {
	return func(s *Scanner) {
		s.Defunct = fn
	}
}

// WithScannerLogger sets the scanner's logger
func WithScannerLogger(l *zap.Logger) ScannerOption {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScanner creates a Scanner with default settings
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		ProcRoot: DefaultProcRoot,
		Pattern:  TagPattern,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tagged implements Source by grouping live worker pids under their tag.
func (s *Scanner) Tagged(ctx context.Context) (map[string][]int, error) {
	return s.FindPIDsByRegex(ctx, s.Pattern)
}

// FindPIDsByRegex groups the pids of live processes by the environment text
// that matched pattern. When pattern has a capture group its first group is
// the key, otherwise the whole match is. Defunct processes and processes
// whose environment cannot be read are skipped.
func (s *Scanner) FindPIDsByRegex(ctx context.Context, pattern *regexp.Regexp) (map[string][]int, error) {
	procs, err := s.processes()
	if err != nil {
		return nil, &OpError{Op: OpScan, Name: pattern.String(), Err: err}
	}

	defunct, err := s.defunct(ctx)
	if err != nil {
		return nil, &OpError{Op: OpScan, Name: pattern.String(), Err: err}
	}

	found := make(map[string][]int)
	for _, p := range procs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, zombie := defunct[p.pid]; zombie {
			continue
		}
		env, ok := p.environ()
		if !ok {
			continue
		}
		if key, ok := matchEnviron(pattern, env); ok {
			found[key] = append(found[key], p.pid)
		}
	}

	for _, pids := range found {
		sort.Ints(pids)
	}

	s.logger.Debug("process scan complete",
		zap.String("pattern", pattern.String()),
		zap.Int("processes", len(procs)),
		zap.Int("matches", len(found)),
	)
	return found, nil
}

// FindPIDByTag returns the first pid whose environment contains tag
// verbatim, or PIDNotFound.
func (s *Scanner) FindPIDByTag(ctx context.Context, tag string) int {
	pattern := regexp.MustCompile(regexp.QuoteMeta(tag))

	procs, err := s.processes()
	if err != nil {
		return PIDNotFound
	}
	for _, p := range procs {
		if ctx.Err() != nil {
			return PIDNotFound
		}
		env, ok := p.environ()
		if !ok {
			continue
		}
		if _, ok := matchEnviron(pattern, env); ok {
			return p.pid
		}
	}
	return PIDNotFound
}

func (s *Scanner) defunct(ctx context.Context) (map[int]struct{}, error) {
	if s.Defunct != nil {
		return s.Defunct(ctx)
	}
	return s.zombies()
}

// matchEnviron returns the key of the first environment entry matching pattern.
func matchEnviron(pattern *regexp.Regexp, env []string) (string, bool) {
	for _, entry := range env {
		m := pattern.FindStringSubmatch(entry)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return m[1], true
		}
		return m[0], true
	}
	return "", false
}
