// Package workerfx runs a servant worker as an fx application: the HTTP
// listener starts with the app and shuts down gracefully when it stops.
package workerfx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	servant "github.com/axondata/go-servant"
)

// Params identifies the worker to run
type Params struct {
	Name    string
	Port    int
	Metrics bool // expose /metrics
}

// Module wires a worker for p, resolving its service through services
func Module(p Params, services *servant.ServiceRegistry, log *zap.Logger) fx.Option {
	return fx.Options(
		fx.Supply(p, services, log),
		fx.Provide(provideWorker),
		fx.Invoke(registerHooks),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)
}

// New builds the worker application
func New(p Params, services *servant.ServiceRegistry, log *zap.Logger) *fx.App {
	return fx.New(Module(p, services, log))
}

func provideWorker(p Params, services *servant.ServiceRegistry, log *zap.Logger) (*servant.Worker, error) {
	svc, err := services.Lookup(p.Name)
	if err != nil {
		return nil, err
	}
	opts := []servant.WorkerOption{servant.WithWorkerLogger(log)}
	if p.Metrics {
		opts = append(opts, servant.WithWorkerMetrics(servant.NewPrometheusMetrics("")))
	}
	return servant.NewWorker(p.Name, svc, opts...), nil
}

type serverDeps struct {
	fx.In
	Params     Params
	Logger     *zap.Logger
	Worker     *servant.Worker
	Shutdowner fx.Shutdowner
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	srv := &http.Server{
		Addr:              servant.Addr(d.Params.Port),
		Handler:           d.Worker.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			l, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			d.Logger.Info("worker starting",
				zap.String("service", d.Params.Name),
				zap.String("addr", l.Addr().String()),
			)
			go func() {
				if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
					d.Logger.Error("worker failed", zap.Error(err))
					_ = d.Shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("worker stopping", zap.String("service", d.Params.Name))
			return srv.Shutdown(ctx)
		},
	})
}
