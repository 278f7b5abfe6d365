package servant

import (
	"context"
	"sync"
	"time"
)

// Manager runs supervision operations for many services concurrently.
// Each service is still handled by its own Supervisor, so concurrent
// Creates for the same name race exactly as they would without it.
type Manager struct {
	// Concurrency is the maximum number of concurrent operations
	Concurrency int
	// Timeout is the per-operation timeout, zero for none
	Timeout time.Duration
	// Options are applied to every Supervisor the manager creates
	Options []Option
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConcurrency sets the maximum number of concurrent operations
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		m.Concurrency = n
	}
}

// WithTimeout sets the per-operation timeout
func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.Timeout = d
	}
}

// WithSupervisorOptions sets the options used for every created Supervisor
func WithSupervisorOptions(opts ...Option) ManagerOption {
	return func(m *Manager) {
		m.Options = append(m.Options, opts...)
	}
}

// NewManager creates a new Manager with default settings
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		Concurrency: 10,
		Timeout:     0,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.Concurrency < 1 {
		m.Concurrency = 1
	}

	return m
}

// execute runs op once per key with bounded concurrency and collects errors
func execute[K comparable](ctx context.Context, m *Manager, keys []K, op func(context.Context, K) error) error {
	if len(keys) == 0 {
		return nil
	}

	// Semaphore for concurrency control
	sem := make(chan struct{}, m.Concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	merr := &MultiError{}

	for _, key := range keys {
		wg.Add(1)
		go func(k K) {
			defer wg.Done()

			// Acquire semaphore slot
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				merr.Add(ctx.Err())
				mu.Unlock()
				return
			}

			opCtx := ctx
			if m.Timeout > 0 {
				var cancel context.CancelFunc
				opCtx, cancel = context.WithTimeout(ctx, m.Timeout)
				defer cancel()
			}

			if err := op(opCtx, k); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}
		}(key)
	}

	wg.Wait()

	return merr.Err()
}

// Create creates or attaches a Supervisor for every name. Supervisors that
// were created are returned even when others failed.
func (m *Manager) Create(ctx context.Context, names ...string) (map[string]*Supervisor, error) {
	var mu sync.Mutex
	results := make(map[string]*Supervisor, len(names))

	err := execute(ctx, m, names, func(ctx context.Context, name string) error {
		s, err := Create(ctx, name, m.Options...)
		if err != nil {
			return err
		}
		mu.Lock()
		results[name] = s
		mu.Unlock()
		return nil
	})
	return results, err
}

// Terminate terminates every supervisor's worker and waits for all of them
func (m *Manager) Terminate(ctx context.Context, sups ...*Supervisor) error {
	return execute(ctx, m, sups, func(ctx context.Context, s *Supervisor) error {
		return s.Terminate(ctx)
	})
}

// Health queries every supervisor's worker, keyed by service name
func (m *Manager) Health(ctx context.Context, sups ...*Supervisor) (map[string]Health, error) {
	var mu sync.Mutex
	results := make(map[string]Health, len(sups))

	err := execute(ctx, m, sups, func(ctx context.Context, s *Supervisor) error {
		h, err := s.Health(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		results[s.Name] = h
		mu.Unlock()
		return nil
	})
	return results, err
}
