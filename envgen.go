package servant

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// ErrUnknownProtocol indicates an environment source with an unsupported scheme
var ErrUnknownProtocol = errors.New("servant: unknown environment protocol")

// EnvGenerator produces environment variables for spawned workers
type EnvGenerator interface {
	Generate(ctx context.Context) (map[string]string, error)
}

// EnvGeneratorFunc adapts a function to EnvGenerator
type EnvGeneratorFunc func(ctx context.Context) (map[string]string, error)

// Generate implements EnvGenerator
func (f EnvGeneratorFunc) Generate(ctx context.Context) (map[string]string, error) {
	return f(ctx)
}

// EnvRegistry holds named environment generators
type EnvRegistry struct {
	mu   sync.RWMutex
	gens map[string]EnvGenerator
}

// NewEnvRegistry creates an empty registry
func NewEnvRegistry() *EnvRegistry {
	return &EnvRegistry{gens: make(map[string]EnvGenerator)}
}

// Register adds gen under name, replacing any previous generator
func (r *EnvRegistry) Register(name string, gen EnvGenerator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[name] = gen
}

// Names returns the registered generator names in sorted order
func (r *EnvRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.gens))
	for name := range r.gens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate runs every generator in name order and merges their output.
// Later generators override earlier ones.
func (r *EnvRegistry) Generate(ctx context.Context) (map[string]string, error) {
	env := make(map[string]string)
	for _, name := range r.Names() {
		r.mu.RLock()
		gen := r.gens[name]
		r.mu.RUnlock()

		vars, err := gen.Generate(ctx)
		if err != nil {
			return nil, fmt.Errorf("environment generator %s: %w", name, err)
		}
		for k, v := range vars {
			env[k] = v
		}
	}
	return env, nil
}

// Protocol returns the lower-cased scheme of an environment source such as
// "file://workers.toml", or "" when there is none.
func Protocol(path string) string {
	scheme, _, ok := strings.Cut(path, "//")
	if !ok {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(scheme), ":")
}

// NewEnvGenerator builds a generator for source. Plain paths and file://
// URLs are read as TOML files.
func NewEnvGenerator(source string) (EnvGenerator, error) {
	switch Protocol(source) {
	case "":
		return &TOMLFileEnv{Path: source}, nil
	case "file":
		_, path, _ := strings.Cut(source, "//")
		return &TOMLFileEnv{Path: path}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, source)
	}
}

// TOMLFileEnv reads worker environment variables from the top-level keys of
// a TOML file. Scalar values are formatted as strings; tables and arrays are
// rejected.
type TOMLFileEnv struct {
	Path string
}

// Generate implements EnvGenerator
func (e *TOMLFileEnv) Generate(context.Context) (map[string]string, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.Path, err)
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", e.Path, err)
	}

	env := make(map[string]string, len(doc))
	for k, v := range doc {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("%s: key %s is not a scalar", e.Path, k)
		}
		env[k] = fmt.Sprint(v)
	}
	return env, nil
}

// envList renders vars as sorted KEY=VALUE entries
func envList(vars map[string]string) []string {
	out := make([]string, 0, len(vars))
	for k, v := range vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
