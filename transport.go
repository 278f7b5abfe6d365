package servant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
)

// Health is a worker's answer to a health query
type Health struct {
	// IsRunning reports whether the service inside the worker is running
	IsRunning bool
	// UpTime is the number of seconds since the worker started
	UpTime float64
	// Fields holds the full decoded response, including service specific keys
	Fields map[string]any
}

// Transport issues health checks and function calls to workers on the local host
type Transport struct {
	// BaseURL is the scheme and host workers are reached at, without port
	BaseURL string
	// Client performs the requests
	Client *http.Client
}

// NewTransport creates a Transport for DefaultHostURL
func NewTransport() *Transport {
	return &Transport{
		BaseURL: DefaultHostURL,
		Client:  &http.Client{Timeout: DefaultRequestTimeout},
	}
}

func (t *Transport) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}

func (t *Transport) endpoint(port int, path string) string {
	base := t.BaseURL
	if base == "" {
		base = DefaultHostURL
	}
	return base + ":" + strconv.Itoa(port) + path
}

// Call invokes fn on the worker listening on port with args as its named
// arguments and returns the decoded result. Any non-200 answer fails.
func (t *Transport) Call(ctx context.Context, port int, fn string, args Args) (Args, error) {
	if args == nil {
		args = Args{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments for %s: %w", fn, err)
	}

	var out Args
	if err := t.do(ctx, t.endpoint(port, "/call/"+url.PathEscape(fn)), body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health queries the worker listening on port
func (t *Transport) Health(ctx context.Context, port int) (Health, error) {
	var fields map[string]any
	if err := t.do(ctx, t.endpoint(port, "/health"), nil, &fields); err != nil {
		return Health{}, err
	}

	h := Health{Fields: fields}
	if v, ok := fields["is_running"].(bool); ok {
		h.IsRunning = v
	}
	if v, ok := fields["up_time"].(float64); ok {
		h.UpTime = v
	}
	return h, nil
}

func (t *Transport) do(ctx context.Context, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, reader)
	if err != nil {
		return &TransportError{URL: target, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client().Do(req)
	if err != nil {
		return &TransportError{URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &TransportError{URL: target, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{URL: target, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// FindFreePort asks the OS for an unused TCP port and releases it. Another
// process may claim the port before the caller binds it.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, fmt.Errorf("releasing port %d: %w", port, err)
	}
	return port, nil
}
