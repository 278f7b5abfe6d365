package servant

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Supervisor
type Option func(*Supervisor)

// WithCommand sets the program spawned for new workers. The service name and
// port are appended as the last two arguments. Defaults to the running
// executable.
func WithCommand(path string, args ...string) Option {
	return func(s *Supervisor) {
		s.Command = append([]string{path}, args...)
	}
}

// WithEnv adds KEY=VALUE entries to the environment of spawned workers
func WithEnv(env ...string) Option {
	return func(s *Supervisor) {
		s.Env = append(s.Env, env...)
	}
}

// WithEnvGenerator sets a generator whose variables are added to the
// environment of spawned workers, e.g. an *EnvRegistry
func WithEnvGenerator(gen EnvGenerator) Option {
	return func(s *Supervisor) {
		s.EnvGenerator = gen
	}
}

// WithLogDir sets where worker stdout and stderr files are written
func WithLogDir(dir string) Option {
	return func(s *Supervisor) {
		s.LogDir = dir
	}
}

// WithReadyTimeout sets the time budget for a spawned worker to become healthy
func WithReadyTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		s.ReadyTimeout = d
	}
}

// WithPollInterval sets the interval between readiness and termination probes
func WithPollInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.PollInterval = d
	}
}

// WithStrictReady makes Create fail with ErrNotReady when a spawned worker
// does not become healthy in time. Otherwise Create returns the supervisor
// and only logs the timeout.
func WithStrictReady(strict bool) Option {
	return func(s *Supervisor) {
		s.StrictReady = strict
	}
}

// WithDiscovery sets where existing workers are looked up. Defaults to
// scanning the process table.
func WithDiscovery(src Source) Option {
	return func(s *Supervisor) {
		s.Discovery = src
	}
}

// WithRunDir records spawned workers in dir and removes the record on
// termination
func WithRunDir(dir *RunDir) Option {
	return func(s *Supervisor) {
		s.RunDir = dir
	}
}

// WithTransport sets the RPC transport
func WithTransport(t *Transport) Option {
	return func(s *Supervisor) {
		if t != nil {
			s.Transport = t
		}
	}
}

// WithLogger sets the supervisor's logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the collector receiving supervision events
func WithMetrics(m MetricsCollector) Option {
	return func(s *Supervisor) {
		if m != nil {
			s.metrics = m
		}
	}
}
