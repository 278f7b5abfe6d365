package servant

import (
	"time"
)

// Tag and discovery constants
const (
	// TagMarker is the environment variable name carried by every worker process
	TagMarker = "THEREISASERVANT"

	// PIDNotFound is returned by lookups that found no matching process
	PIDNotFound = -1

	// DefaultHostURL is the base URL used to reach workers on the local host
	DefaultHostURL = "http://localhost"

	// DefaultProcRoot is the procfs mount point scanned for worker processes
	DefaultProcRoot = "/proc"
)

// Timing defaults
const (
	// DefaultPollInterval is the interval between readiness and termination probes
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultReadyTimeout is the time budget for a freshly spawned worker to answer /health
	DefaultReadyTimeout = 5 * time.Second

	// DefaultRequestTimeout bounds a single RPC round trip to a worker
	DefaultRequestTimeout = 30 * time.Second

	// DefaultWatchDebounce is the debounce time for run directory events
	DefaultWatchDebounce = 25 * time.Millisecond

	// DefaultShutdownGrace is how long a worker waits for in-flight requests on interrupt
	DefaultShutdownGrace = 5 * time.Second
)

// File modes
const (
	// DirMode is the default mode for created directories
	DirMode = 0o755

	// FileMode is the default mode for created files
	FileMode = 0o644
)

// Operation represents a supervision operation type
type Operation int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Operation = iota
	// OpScan enumerates tagged processes
	OpScan
	// OpDecode parses a tag
	OpDecode
	// OpAttach binds to an already running worker
	OpAttach
	// OpSpawn starts a new worker process
	OpSpawn
	// OpWait polls a worker until it answers health checks
	OpWait
	// OpHealth queries a worker's health endpoint
	OpHealth
	// OpCall invokes a function on a worker
	OpCall
	// OpTerminate interrupts a worker process
	OpTerminate
	// OpRecord writes or removes a run directory record
	OpRecord
	// OpWatch monitors a run directory
	OpWatch
)

// String returns the string representation of an Operation
func (op Operation) String() string {
	switch op {
	case OpScan:
		return "scan"
	case OpDecode:
		return "decode"
	case OpAttach:
		return "attach"
	case OpSpawn:
		return "spawn"
	case OpWait:
		return "wait"
	case OpHealth:
		return "health"
	case OpCall:
		return "call"
	case OpTerminate:
		return "terminate"
	case OpRecord:
		return "record"
	case OpWatch:
		return "watch"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of a Supervisor
type State int

const (
	// StateResolving means the registry is being consulted
	StateResolving State = iota
	// StateAttached means an existing worker was found
	StateAttached
	// StateSpawning means a new worker process is being started
	StateSpawning
	// StateAwaitingHealthy means the new worker has not answered /health yet
	StateAwaitingHealthy
	// StateReady means the worker is usable
	StateReady
	// StateTerminating means an interrupt was sent and exit is awaited
	StateTerminating
	// StateTerminated means the worker process is gone
	StateTerminated
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateAttached:
		return "attached"
	case StateSpawning:
		return "spawning"
	case StateAwaitingHealthy:
		return "awaiting-healthy"
	case StateReady:
		return "ready"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
