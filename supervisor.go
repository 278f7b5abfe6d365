package servant

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/axondata/go-servant/internal/unix"
)

// Supervisor manages the singleton worker for one service name. Create
// attaches to a running worker or spawns a new one; the state it reports is
// derived from the host, so several Supervisors for one name agree only when
// each re-resolves through a Registry.
//
// Create's "is there a worker already" check and its spawn are not atomic:
// concurrent Creates for an unclaimed name may both spawn. Later snapshots
// pick the smallest pid for the name and Registry.Duplicates reports the
// rest for the caller to reap.
//
// A Supervisor is not safe for concurrent use.
type Supervisor struct {
	// Name is the service name
	Name string

	// Handle is the worker this supervisor is bound to
	Handle Handle

	// Command is the program spawned for new workers, without name and port
	Command []string

	// Env holds extra KEY=VALUE entries for spawned workers
	Env []string

	// EnvGenerator adds generated variables to spawned workers
	EnvGenerator EnvGenerator

	// LogDir receives <tag>.stdout.txt and <tag>.stderr.txt per spawned worker
	LogDir string

	// ReadyTimeout is the time budget for a spawned worker to become healthy
	ReadyTimeout time.Duration

	// PollInterval is the interval between readiness and termination probes
	PollInterval time.Duration

	// StrictReady turns a readiness timeout in Create into an error
	StrictReady bool

	// Discovery finds running workers, nil meaning the process table
	Discovery Source

	// RunDir, when set, holds a record for every spawned worker
	RunDir *RunDir

	// Transport carries health checks and calls
	Transport *Transport

	state   State
	logger  *zap.Logger
	metrics MetricsCollector
}

// WaitOptions controls a readiness wait
type WaitOptions struct {
	// Timeout is the overall time budget
	Timeout time.Duration
	// Interval is the delay between health probes
	Interval time.Duration
	// Strict returns an error wrapping ErrNotReady instead of false on timeout
	Strict bool
}

func newSupervisor(name string, opts ...Option) *Supervisor {
	s := &Supervisor{
		Name:         name,
		LogDir:       os.TempDir(),
		ReadyTimeout: DefaultReadyTimeout,
		PollInterval: DefaultPollInterval,
		Transport:    NewTransport(),
		state:        StateResolving,
		logger:       zap.NewNop(),
		metrics:      NewNoopMetricsCollector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	}
	s.logger = s.logger.With(zap.String("service", name))
	return s
}

// Create returns a Supervisor bound to the worker for name, attaching to a
// running one when discovery finds it and spawning a new one otherwise. A
// spawned worker is given ReadyTimeout to answer health checks.
func Create(ctx context.Context, name string, opts ...Option) (*Supervisor, error) {
	if name == "" {
		return nil, &OpError{Op: OpSpawn, Name: name, Err: ErrNameRequired}
	}
	s := newSupervisor(name, opts...)

	h, found, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if found {
		s.Handle = h
		s.transition(StateAttached)
		s.transition(StateReady)
		s.logger.Info("attached to worker", zap.Int("pid", h.PID), zap.Int("port", h.Port))
		return s, nil
	}

	if err := s.spawn(ctx); err != nil {
		return nil, err
	}

	s.transition(StateAwaitingHealthy)
	ready, err := s.WaitReady(ctx, WaitOptions{
		Timeout:  s.ReadyTimeout,
		Interval: s.PollInterval,
		Strict:   s.StrictReady,
	})
	if err != nil {
		// nobody else holds this worker; do not leave it running
		_ = s.Handle.Interrupt()
		s.forget()
		return nil, err
	}
	if !ready {
		s.logger.Warn("worker not ready", zap.Int("pid", s.Handle.PID), zap.Int("port", s.Handle.Port))
	}
	return s, nil
}

// Find returns a Supervisor bound to the running worker for name without
// spawning one. The boolean is false when no worker was found.
func Find(ctx context.Context, name string, opts ...Option) (*Supervisor, bool, error) {
	if name == "" {
		return nil, false, &OpError{Op: OpAttach, Name: name, Err: ErrNameRequired}
	}
	s := newSupervisor(name, opts...)

	h, found, err := s.resolve(ctx)
	if err != nil || !found {
		return nil, false, err
	}
	s.Handle = h
	s.transition(StateAttached)
	s.transition(StateReady)
	return s, true, nil
}

func (s *Supervisor) resolve(ctx context.Context) (Handle, bool, error) {
	opts := []RegistryOption{WithRegistryLogger(s.logger)}
	if s.Discovery != nil {
		opts = append(opts, WithSource(s.Discovery))
	}
	reg, err := NewRegistry(ctx, opts...)
	if err != nil {
		return Handle{}, false, &OpError{Op: OpScan, Name: s.Name, Err: err}
	}
	h, ok, err := reg.Lookup(s.Name)
	if err != nil {
		return Handle{}, false, &OpError{Op: OpAttach, Name: s.Name, Err: err}
	}
	return h, ok, nil
}

func (s *Supervisor) command() ([]string, error) {
	if len(s.Command) > 0 {
		return s.Command, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	return []string{exe}, nil
}

func (s *Supervisor) spawn(ctx context.Context) error {
	s.transition(StateSpawning)

	argv, err := s.command()
	if err != nil {
		return &OpError{Op: OpSpawn, Name: s.Name, Err: err}
	}

	port, err := FindFreePort()
	if err != nil {
		return &OpError{Op: OpSpawn, Name: s.Name, Err: err}
	}
	tag := EncodeTag(s.Name, port)

	env := os.Environ()
	if s.EnvGenerator != nil {
		generated, err := s.EnvGenerator.Generate(ctx)
		if err != nil {
			return &OpError{Op: OpSpawn, Name: s.Name, Err: err}
		}
		env = append(env, envList(generated)...)
	}
	env = append(env, s.Env...)
	env = append(env, tag)

	stdout, stderr, err := s.openLogs(tag)
	if err != nil {
		return &OpError{Op: OpSpawn, Name: s.Name, Err: err}
	}
	defer func() {
		_ = stdout.Close()
		_ = stderr.Close()
	}()

	args := append(append([]string(nil), argv[1:]...), s.Name, strconv.Itoa(port))
	// #nosec G204 -- the worker command is configured by the caller
	cmd := exec.Command(argv[0], args...)
	cmd.Env = env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	unix.Detach(cmd)

	if err := cmd.Start(); err != nil {
		return &OpError{Op: OpSpawn, Name: s.Name, Err: err}
	}
	// reap the child whenever it exits
	go func() { _ = cmd.Wait() }()

	s.Handle = Handle{Name: s.Name, PID: cmd.Process.Pid, Port: port}
	s.logger.Info("spawned worker",
		zap.Int("pid", s.Handle.PID),
		zap.Int("port", port),
		zap.String("stdout", stdout.Name()),
	)

	if s.RunDir != nil {
		if err := s.RunDir.Record(s.Handle); err != nil {
			s.logger.Warn("recording worker", zap.Error(err))
		}
	}
	return nil
}

func (s *Supervisor) openLogs(tag string) (*os.File, *os.File, error) {
	if err := os.MkdirAll(s.LogDir, DirMode); err != nil {
		return nil, nil, fmt.Errorf("creating log dir: %w", err)
	}
	stdout, err := os.Create(filepath.Join(s.LogDir, tag+".stdout.txt"))
	if err != nil {
		return nil, nil, err
	}
	stderr, err := os.Create(filepath.Join(s.LogDir, tag+".stderr.txt"))
	if err != nil {
		_ = stdout.Close()
		return nil, nil, err
	}
	return stdout, stderr, nil
}

// WaitReady polls the worker's health endpoint every opts.Interval until it
// answers or opts.Timeout elapses. On timeout it returns false, or an error
// wrapping ErrNotReady when opts.Strict is set. A zero Timeout or Interval
// uses the supervisor's settings. A supervisor awaiting its worker becomes
// Ready once the worker answers.
func (s *Supervisor) WaitReady(ctx context.Context, opts WaitOptions) (bool, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = s.ReadyTimeout
	}
	if opts.Interval <= 0 {
		opts.Interval = s.PollInterval
	}

	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Transport.Health(waitCtx, s.Handle.Port); err == nil {
			s.metrics.ReadyWaitDuration(s.Name, time.Since(start), true)
			if s.state == StateAwaitingHealthy {
				s.transition(StateReady)
			}
			return true, nil
		}

		select {
		case <-ticker.C:
			continue
		case <-waitCtx.Done():
		}

		s.metrics.ReadyWaitDuration(s.Name, time.Since(start), false)
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if opts.Strict {
			return false, &OpError{
				Op:   OpWait,
				Name: s.Name,
				Err:  fmt.Errorf("%w: port %d after %s", ErrNotReady, s.Handle.Port, opts.Timeout),
			}
		}
		return false, nil
	}
}

// Call invokes fn on the worker. Transport failures are returned as is,
// without retry.
func (s *Supervisor) Call(ctx context.Context, fn string, args Args) (Args, error) {
	if s.Handle.Port == 0 {
		return nil, &OpError{Op: OpCall, Name: s.Name, Err: ErrNotAttached}
	}
	start := time.Now()
	out, err := s.Transport.Call(ctx, s.Handle.Port, fn, args)
	s.metrics.CallDuration(s.Name, fn, time.Since(start), err)
	if err != nil {
		return nil, &OpError{Op: OpCall, Name: s.Name, Err: err}
	}
	return out, nil
}

// Health queries the worker's health endpoint
func (s *Supervisor) Health(ctx context.Context) (Health, error) {
	if s.Handle.Port == 0 {
		return Health{}, &OpError{Op: OpHealth, Name: s.Name, Err: ErrNotAttached}
	}
	h, err := s.Transport.Health(ctx, s.Handle.Port)
	if err != nil {
		return Health{}, &OpError{Op: OpHealth, Name: s.Name, Err: err}
	}
	return h, nil
}

// IsAlive reports whether the bound worker process exists. It is false as
// soon as Terminate has been called.
func (s *Supervisor) IsAlive() bool {
	return s.Handle.IsAlive()
}

// State returns the supervisor's lifecycle state
func (s *Supervisor) State() State {
	return s.state
}

// Terminate interrupts the worker and blocks until its process has exited.
// The handle's pid is cleared before waiting. Cancelling ctx returns early
// without stopping the termination.
func (s *Supervisor) Terminate(ctx context.Context) error {
	pid := s.Handle.PID
	if pid == 0 {
		s.transition(StateTerminated)
		return nil
	}
	s.transition(StateTerminating)
	s.logger.Info("terminating worker", zap.Int("pid", pid))

	start := time.Now()
	h := s.Handle
	if err := s.Handle.Terminate(ctx, s.PollInterval); err != nil {
		return err
	}
	s.metrics.TerminationDuration(s.Name, time.Since(start))

	if s.RunDir != nil {
		if err := s.RunDir.Remove(h); err != nil {
			s.logger.Warn("removing worker record", zap.Error(err))
		}
	}
	s.transition(StateTerminated)
	return nil
}

// forget drops a worker that failed to start
func (s *Supervisor) forget() {
	if s.RunDir != nil {
		_ = s.RunDir.Remove(s.Handle)
	}
	s.Handle.PID = 0
	s.transition(StateTerminated)
}

func (s *Supervisor) transition(to State) {
	from := s.state
	s.state = to
	s.metrics.StateTransition(s.Name, from, to)
	s.logger.Debug("state transition", zap.Stringer("from", from), zap.Stringer("to", to))
}

// String implements fmt.Stringer
func (s *Supervisor) String() string {
	return fmt.Sprintf("Supervisor(service: %s, pid: %d, port: %d)", s.Name, s.Handle.PID, s.Handle.Port)
}
