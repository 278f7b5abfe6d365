package servant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRegistryLookup(t *testing.T) {
	r := DefaultServices()

	tests := []struct {
		name string
		ok   bool
	}{
		{"DemoService", true},
		{"pkg.mod.DemoService", true},
		{"t1a2b3.DemoService", true},
		{"Missing", false},
		{"pkg.Missing", false},
		{"DemoService.extra", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := r.Lookup(tt.name)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrUnknownService)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &DemoService{}, svc)
		})
	}
}

func TestServiceRegistryExactNameWins(t *testing.T) {
	r := DefaultServices()
	r.Register("pkg.DemoService", func() Service { return echoService{} })

	svc, err := r.Lookup("pkg.DemoService")
	require.NoError(t, err)
	assert.IsType(t, echoService{}, svc)
	assert.Equal(t, []string{"DemoService", "pkg.DemoService"}, r.Names())
}

func TestServiceRegistryBuildsFreshInstances(t *testing.T) {
	r := DefaultServices()
	a, err := r.Lookup(DemoServiceName)
	require.NoError(t, err)
	b, err := r.Lookup(DemoServiceName)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestDemoService(t *testing.T) {
	svc := NewDemoService()
	time.Sleep(5 * time.Millisecond)

	h, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, true, h["is_running"])
	assert.Greater(t, h["up_time"].(float64), 0.0)

	out, err := svc.Call(context.Background(), "anything", Args{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, Args{"demo": true}, out)
}

// echoService returns its arguments, or fails for the "fail" function
type echoService struct{}

func (echoService) Health(context.Context) (map[string]any, error) {
	return map[string]any{"is_running": true, "up_time": 1.5, "kind": "echo"}, nil
}

func (echoService) Call(_ context.Context, fn string, args Args) (Args, error) {
	if fn == "fail" {
		return nil, assert.AnError
	}
	out := Args{"func": fn}
	for k, v := range args {
		out[k] = v
	}
	return out, nil
}
