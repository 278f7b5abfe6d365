package servant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Args carries the named arguments and results of a worker call
type Args map[string]any

// Service is the functionality a worker process hosts
type Service interface {
	// Health reports the service state. The result must carry at least
	// is_running (bool) and up_time (seconds as a float).
	Health(ctx context.Context) (map[string]any, error)

	// Call runs the function fn with args
	Call(ctx context.Context, fn string, args Args) (Args, error)
}

// ServiceFactory builds a fresh Service for a worker
type ServiceFactory func() Service

// ServiceRegistry maps service names to the factories that build them.
// Workers resolve their service through it on startup.
type ServiceRegistry struct {
	mu        sync.RWMutex
	factories map[string]ServiceFactory
}

// NewServiceRegistry creates an empty registry
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{factories: make(map[string]ServiceFactory)}
}

// Register adds a factory under name, replacing any previous one
func (r *ServiceRegistry) Register(name string, factory ServiceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Names returns the registered names in sorted order
func (r *ServiceRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup builds the service registered for name. Dotted names such as
// "pkg.mod.DemoService" fall back to their last segment.
func (r *ServiceRegistry) Lookup(name string) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.factories[name]; ok {
		return f(), nil
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		if f, ok := r.factories[name[i+1:]]; ok {
			return f(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
}

// DemoServiceName is the name DemoService registers under
const DemoServiceName = "DemoService"

// DemoService is a minimal Service answering every call with {"demo": true}
type DemoService struct {
	started time.Time
}

// NewDemoService creates a DemoService whose up time starts now
func NewDemoService() Service {
	return &DemoService{started: time.Now()}
}

// Health implements Service
func (d *DemoService) Health(context.Context) (map[string]any, error) {
	return map[string]any{
		"is_running": true,
		"up_time":    time.Since(d.started).Seconds(),
	}, nil
}

// Call implements Service
func (d *DemoService) Call(context.Context, string, Args) (Args, error) {
	return Args{"demo": true}, nil
}

// DefaultServices returns a registry holding the built-in services
func DefaultServices() *ServiceRegistry {
	r := NewServiceRegistry()
	r.Register(DemoServiceName, NewDemoService)
	return r
}
