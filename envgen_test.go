package servant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocol(t *testing.T) {
	tests := map[string]string{
		"file://workers.toml":  "file",
		"FILE:///etc/env.toml": "file",
		"s3://bucket/key":      "s3",
		"workers.toml":         "",
		"":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Protocol(in), in)
	}
}

func TestEnvRegistryGenerate(t *testing.T) {
	r := NewEnvRegistry()
	assert.Empty(t, r.Names())

	r.Register("b", EnvGeneratorFunc(func(context.Context) (map[string]string, error) {
		return map[string]string{"SHARED": "b", "ONLY_B": "1"}, nil
	}))
	r.Register("a", EnvGeneratorFunc(func(context.Context) (map[string]string, error) {
		return map[string]string{"SHARED": "a", "ONLY_A": "1"}, nil
	}))

	assert.Equal(t, []string{"a", "b"}, r.Names())

	env, err := r.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"SHARED": "b", "ONLY_A": "1", "ONLY_B": "1"}, env)
	assert.Equal(t, []string{"ONLY_A=1", "ONLY_B=1", "SHARED=b"}, envList(env))
}

func TestEnvRegistryGenerateError(t *testing.T) {
	r := NewEnvRegistry()
	boom := errors.New("boom")
	r.Register("bad", EnvGeneratorFunc(func(context.Context) (map[string]string, error) {
		return nil, boom
	}))

	_, err := r.Generate(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestTOMLFileEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
DB_HOST = "localhost"
DB_PORT = 5432
DEBUG = true
`), 0o644))

	gen, err := NewEnvGenerator("file://" + path)
	require.NoError(t, err)

	env, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"DB_HOST": "localhost", "DB_PORT": "5432", "DEBUG": "true"}, env)

	plain, err := NewEnvGenerator(path)
	require.NoError(t, err)
	assert.Equal(t, &TOMLFileEnv{Path: path}, plain)
}

func TestTOMLFileEnvErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := (&TOMLFileEnv{Path: filepath.Join(dir, "missing.toml")}).Generate(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("= nope"), 0o644))
	_, err = (&TOMLFileEnv{Path: bad}).Generate(context.Background())
	assert.Error(t, err)

	nested := filepath.Join(dir, "nested.toml")
	require.NoError(t, os.WriteFile(nested, []byte("[table]\nkey = 1\n"), 0o644))
	_, err = (&TOMLFileEnv{Path: nested}).Generate(context.Background())
	assert.Error(t, err)

	_, err = NewEnvGenerator("s3://bucket/env.toml")
	assert.ErrorIs(t, err, ErrUnknownProtocol)
}
