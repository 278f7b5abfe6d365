package servant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	tagged map[string][]int
	err    error
}

func (s staticSource) Tagged(context.Context) (map[string][]int, error) {
	return s.tagged, s.err
}

func TestRegistryCanonicalPID(t *testing.T) {
	src := staticSource{tagged: map[string][]int{
		EncodeTag("DemoService", 8080): {300, 120, 455},
		EncodeTag("pkg.Other", 9090):   {77},
	}}

	r, err := NewRegistry(context.Background(), WithSource(src))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		EncodeTag("DemoService", 8080): 120,
		EncodeTag("pkg.Other", 9090):   77,
	}, r.Tags())
	assert.Equal(t, map[string][]int{
		EncodeTag("DemoService", 8080): {300, 455},
	}, r.Duplicates())

	handles, err := r.Handles()
	require.NoError(t, err)
	assert.Equal(t, []Handle{
		{Name: "DemoService", PID: 120, Port: 8080},
		{Name: "pkg.Other", PID: 77, Port: 9090},
	}, handles)

	h, ok, err := r.Lookup("pkg.Other")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Handle{Name: "pkg.Other", PID: 77, Port: 9090}, h)

	_, ok, err = r.Lookup("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistrySnapshotSameNameDifferentPorts(t *testing.T) {
	src := staticSource{tagged: map[string][]int{
		EncodeTag("DemoService", 1): {50},
		EncodeTag("DemoService", 2): {40},
	}}

	r, err := NewRegistry(context.Background(), WithSource(src))
	require.NoError(t, err)

	snap, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, map[string]Handle{"DemoService": {Name: "DemoService", PID: 40, Port: 2}}, snap)
}

func TestRegistryEmpty(t *testing.T) {
	r, err := NewRegistry(context.Background(), WithSource(staticSource{}))
	require.NoError(t, err)

	snap, err := r.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap)
	assert.NoError(t, r.TerminateAll())
}

func TestRegistryMalformedTag(t *testing.T) {
	src := staticSource{tagged: map[string][]int{TagMarker + "=nodelimiter": {5}}}

	r, err := NewRegistry(context.Background(), WithSource(src))
	require.NoError(t, err)

	_, err = r.Snapshot()
	assert.ErrorIs(t, err, ErrMalformedTag)
}

func TestRegistrySourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewRegistry(context.Background(), WithSource(staticSource{err: boom}))
	assert.ErrorIs(t, err, boom)
}

func TestRegistryReturnsCopies(t *testing.T) {
	src := staticSource{tagged: map[string][]int{EncodeTag("a", 1): {3, 4}}}
	r, err := NewRegistry(context.Background(), WithSource(src))
	require.NoError(t, err)

	r.Tags()[EncodeTag("a", 1)] = 99
	r.Duplicates()[EncodeTag("a", 1)][0] = 99

	assert.Equal(t, 3, r.Tags()[EncodeTag("a", 1)])
	assert.Equal(t, []int{4}, r.Duplicates()[EncodeTag("a", 1)])
}
