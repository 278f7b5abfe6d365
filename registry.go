package servant

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/axondata/go-servant/internal/unix"
)

// Source reports the tagged worker processes visible on the host, grouped
// by tag with pids in ascending order.
type Source interface {
	Tagged(ctx context.Context) (map[string][]int, error)
}

// Registry is a point-in-time view of the workers on the host. When several
// processes carry the same tag the smallest pid is canonical; the others are
// reported by Duplicates for the caller to reconcile.
type Registry struct {
	source Source
	logger *zap.Logger

	canonical  map[string]int
	duplicates map[string][]int
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithSource sets where the registry discovers workers. Defaults to a Scanner.
func WithSource(src Source) RegistryOption {
	return func(r *Registry) {
		if src != nil {
			r.source = src
		}
	}
}

// WithRegistryLogger sets the registry's logger
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry takes a snapshot of the tagged workers on the host
func NewRegistry(ctx context.Context, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.source == nil {
		r.source = NewScanner(WithScannerLogger(r.logger))
	}

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Refresh replaces the snapshot with the source's current view
func (r *Registry) Refresh(ctx context.Context) error {
	tagged, err := r.source.Tagged(ctx)
	if err != nil {
		return err
	}

	canonical := make(map[string]int, len(tagged))
	duplicates := make(map[string][]int)
	for tag, pids := range tagged {
		if len(pids) == 0 {
			continue
		}
		sorted := append([]int(nil), pids...)
		sort.Ints(sorted)

		canonical[tag] = sorted[0]
		if len(sorted) > 1 {
			duplicates[tag] = sorted[1:]
			r.logger.Warn("duplicate workers for tag",
				zap.String("tag", tag),
				zap.Int("canonical", sorted[0]),
				zap.Ints("duplicates", sorted[1:]),
			)
		}
	}

	r.canonical = canonical
	r.duplicates = duplicates
	return nil
}

// Tags returns a copy of the tag to canonical pid mapping
func (r *Registry) Tags() map[string]int {
	out := make(map[string]int, len(r.canonical))
	for tag, pid := range r.canonical {
		out[tag] = pid
	}
	return out
}

// Duplicates returns the non-canonical pids per tag
func (r *Registry) Duplicates() map[string][]int {
	out := make(map[string][]int, len(r.duplicates))
	for tag, pids := range r.duplicates {
		out[tag] = append([]int(nil), pids...)
	}
	return out
}

// Handles decodes every canonical worker into a Handle, sorted by name then
// pid. A tag that does not decode fails the whole call.
func (r *Registry) Handles() ([]Handle, error) {
	handles := make([]Handle, 0, len(r.canonical))
	for tag, pid := range r.canonical {
		h, err := Attach(tag, pid)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}

	sort.Slice(handles, func(i, j int) bool {
		if handles[i].Name != handles[j].Name {
			return handles[i].Name < handles[j].Name
		}
		return handles[i].PID < handles[j].PID
	})
	return handles, nil
}

// Snapshot returns the canonical handle per service name. Should two tags
// decode to the same name, the one with the smaller pid wins.
func (r *Registry) Snapshot() (map[string]Handle, error) {
	handles, err := r.Handles()
	if err != nil {
		return nil, err
	}

	out := make(map[string]Handle, len(handles))
	for _, h := range handles {
		if _, ok := out[h.Name]; !ok {
			out[h.Name] = h
		}
	}
	return out, nil
}

// Lookup returns the canonical handle for name
func (r *Registry) Lookup(name string) (Handle, bool, error) {
	snap, err := r.Snapshot()
	if err != nil {
		return Handle{}, false, err
	}
	h, ok := snap[name]
	return h, ok, nil
}

// TerminateAll interrupts every canonical worker without waiting for any of
// them to exit.
func (r *Registry) TerminateAll() error {
	merr := &MultiError{}
	for tag, pid := range r.canonical {
		if err := unix.Interrupt(pid); err != nil {
			merr.Add(&OpError{Op: OpTerminate, Name: tag, Err: err})
			continue
		}
		r.logger.Debug("interrupted worker", zap.String("tag", tag), zap.Int("pid", pid))
	}
	return merr.Err()
}
