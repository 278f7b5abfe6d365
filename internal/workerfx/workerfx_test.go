package workerfx

import (
	"context"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zaptest"

	servant "github.com/axondata/go-servant"
)

func TestWorkerLifecycle(t *testing.T) {
	port, err := servant.FindFreePort()
	require.NoError(t, err)

	p := Params{Name: "pkg.mod.DemoService", Port: port, Metrics: true}
	app := fxtest.New(t, Module(p, servant.DefaultServices(), zaptest.NewLogger(t)))
	app.RequireStart()

	tr := servant.NewTransport()
	h, err := tr.Health(context.Background(), port)
	require.NoError(t, err)
	assert.True(t, h.IsRunning)

	out, err := tr.Call(context.Background(), port, "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, servant.Args{"demo": true}, out)

	resp, err := http.Get("http://" + servant.Addr(port) + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	app.RequireStop()

	_, err = tr.Health(context.Background(), port)
	assert.ErrorIs(t, err, servant.ErrTransport)
}

func TestUnknownServiceFailsToBuild(t *testing.T) {
	app := fx.New(
		Module(Params{Name: "Nope", Port: 1}, servant.DefaultServices(), zaptest.NewLogger(t)),
	)
	err := app.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), servant.ErrUnknownService.Error())
}

func TestPortInUseFailsToStart(t *testing.T) {
	l, err := net.Listen("tcp", servant.Addr(0))
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	port := l.Addr().(*net.TCPAddr).Port

	app := fx.New(Module(Params{Name: "DemoService", Port: port}, servant.DefaultServices(), zaptest.NewLogger(t)))
	require.NoError(t, app.Err())
	assert.Error(t, app.Start(context.Background()))
}
