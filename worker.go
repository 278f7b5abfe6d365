package servant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Worker serves one Service over HTTP: /health, /call/{func} and, when a
// Prometheus collector is configured, /metrics.
type Worker struct {
	// Name is the service name the worker was started for
	Name string
	// Service handles the requests
	Service Service

	logger      *zap.Logger
	metrics     MetricsCollector
	metricsHTTP http.Handler
	grace       time.Duration
	router      chi.Router
}

// WorkerOption configures a Worker
type WorkerOption func(*Worker)

// WithWorkerLogger sets the access and error logger
func WithWorkerLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithWorkerMetrics records requests in pm and exposes it on /metrics
func WithWorkerMetrics(pm *PrometheusMetrics) WorkerOption {
	return func(w *Worker) {
		if pm != nil {
			w.metrics = pm
			w.metricsHTTP = pm.Handler()
		}
	}
}

// WithShutdownGrace bounds how long Serve waits for in-flight requests
func WithShutdownGrace(d time.Duration) WorkerOption {
	return func(w *Worker) {
		w.grace = d
	}
}

// NewWorker creates a worker for svc
func NewWorker(name string, svc Service, opts ...WorkerOption) *Worker {
	w := &Worker{
		Name:    name,
		Service: svc,
		logger:  zap.NewNop(),
		metrics: NewNoopMetricsCollector(),
		grace:   DefaultShutdownGrace,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.router = w.routes()
	return w
}

func (w *Worker) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(w.accessLog)
	r.Use(w.collect)

	r.Get("/health", w.handleHealth)
	r.Get("/call/{func}", w.handleCall)
	r.Post("/call/{func}", w.handleCall)
	if w.metricsHTTP != nil {
		r.Method(http.MethodGet, "/metrics", w.metricsHTTP)
	}
	return r
}

// Handler returns the worker's HTTP handler
func (w *Worker) Handler() http.Handler {
	return w.router
}

// Addr returns the address a worker for port listens on
func Addr(port int) string {
	return net.JoinHostPort("localhost", strconv.Itoa(port))
}

// Serve listens on port and serves until ctx is done, then shuts down
// gracefully. A clean shutdown returns nil.
func (w *Worker) Serve(ctx context.Context, port int) error {
	l, err := net.Listen("tcp", Addr(port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", port, err)
	}
	return w.serve(ctx, l)
}

func (w *Worker) serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           w.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()

	w.logger.Info("worker listening",
		zap.String("service", w.Name),
		zap.String("addr", l.Addr().String()),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down worker: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	w.logger.Info("worker stopped", zap.String("service", w.Name))
	return nil
}

func (w *Worker) handleHealth(rw http.ResponseWriter, r *http.Request) {
	status, err := w.Service.Health(r.Context())
	if err != nil {
		w.fail(rw, http.StatusInternalServerError, err)
		return
	}
	writeJSON(rw, http.StatusOK, status)
}

func (w *Worker) handleCall(rw http.ResponseWriter, r *http.Request) {
	fn := chi.URLParam(r, "func")

	args := Args{}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.fail(rw, http.StatusBadRequest, err)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &args); err != nil {
			w.fail(rw, http.StatusBadRequest, fmt.Errorf("decoding arguments: %w", err))
			return
		}
		if args == nil {
			args = Args{}
		}
	}

	result, err := w.Service.Call(r.Context(), fn, args)
	if err != nil {
		w.fail(rw, http.StatusInternalServerError, err)
		return
	}
	if result == nil {
		result = Args{}
	}
	writeJSON(rw, http.StatusOK, result)
}

func (w *Worker) fail(rw http.ResponseWriter, status int, err error) {
	w.logger.Warn("request failed", zap.String("service", w.Name), zap.Int("status", status), zap.Error(err))
	writeJSON(rw, status, map[string]string{"error": err.Error()})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

// accessLog writes one structured line per request
func (w *Worker) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(rw, r.ProtoMajor)
		start := time.Now()

		defer func() {
			w.logger.Info("request",
				zap.String("requestId", chimw.GetReqID(r.Context())),
				zap.String("httpMethod", r.Method),
				zap.String("uri", r.URL.Path),
				zap.String("remoteAddr", r.RemoteAddr),
				zap.Int("status", ww.Status()),
				zap.Int("responseSize", ww.BytesWritten()),
				zap.Duration("lat", time.Since(start)),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// collect reports each request to the metrics collector under its route
// pattern, keeping function names out of the label set.
func (w *Worker) collect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(rw, r.ProtoMajor)
		start := time.Now()

		defer func() {
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			if route == "/metrics" {
				return
			}
			w.metrics.RequestServed(route, ww.Status(), time.Since(start))
		}()

		next.ServeHTTP(ww, r)
	})
}

// RunWorker resolves name through services and serves it on port until ctx
// is done.
func RunWorker(ctx context.Context, services *ServiceRegistry, name string, port int, opts ...WorkerOption) error {
	svc, err := services.Lookup(name)
	if err != nil {
		return err
	}
	return NewWorker(name, svc, opts...).Serve(ctx, port)
}

// ParseWorkerArgs validates the positional worker arguments: <name> <port>
func ParseWorkerArgs(args []string) (string, int, error) {
	if len(args) != 2 {
		return "", 0, fmt.Errorf("expected <name> <port>, got %d arguments", len(args))
	}
	if args[0] == "" {
		return "", 0, ErrNameRequired
	}
	port, err := strconv.Atoi(args[1])
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", args[1])
	}
	return args[0], port, nil
}
