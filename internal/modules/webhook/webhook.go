// Package webhook exposes the call and event surface over HTTP. Requests
// arrive on net/http goroutines and reach the dispatcher through the
// thread-safe broker surface; synchronous calls park the connection until
// the loop produces the result.
//
//	POST /call/{target}     invoke a method, JSON body as arguments
//	POST /trigger/{event}   publish an event, JSON body as arguments
//	GET  /status            liveness and dispatch counters
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dshills/modkit/internal/dispatch"
	"github.com/dshills/modkit/internal/module"
	"github.com/dshills/modkit/internal/registry"
)

// Module serves the HTTP bridge.
type Module struct {
	name   string
	broker module.Broker
	log    *slog.Logger

	addr    string
	status  func() map[string]any
	timeout time.Duration

	srv *http.Server
	ln  net.Listener
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// WithStatusFunc supplies extra fields for GET /status, typically the
// manager's dispatch counters.
func WithStatusFunc(fn func() map[string]any) Option {
	return func(m *Module) {
		if fn != nil {
			m.status = fn
		}
	}
}

// WithCallTimeout bounds how long a synchronous call may park a request.
// Default 30s.
func WithCallTimeout(d time.Duration) Option {
	return func(m *Module) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// New creates the HTTP bridge listening on addr once started.
func New(name string, broker module.Broker, addr string, opts ...Option) *Module {
	m := &Module{
		name:    name,
		broker:  broker,
		log:     slog.Default(),
		addr:    addr,
		timeout: 30 * time.Second,
	}
	m.status = func() map[string]any { return nil }
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name implements module.Module.
func (m *Module) Name() string { return m.name }

// Handler returns the route table. Exposed for tests and embedding.
func (m *Module) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", m.handleStatus)
	mux.HandleFunc("POST /call/{target}", m.handleCall)
	mux.HandleFunc("POST /trigger/{event}", m.handleTrigger)
	return mux
}

// Activate binds the listener and begins serving. Running in the activate
// phase keeps requests out until every module finished starting.
func (m *Module) Activate(context.Context) error {
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("webhook: %s: listen %s: %w", m.name, m.addr, err)
	}
	m.ln = ln
	m.srv = &http.Server{Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("webhook server failed", "module", m.name, "error", err)
		}
	}()
	m.log.Info("webhook listening", "module", m.name, "addr", ln.Addr().String())
	return nil
}

// Deactivate stops accepting requests before the queue is resolved.
func (m *Module) Deactivate(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}

// Addr reports the bound address, useful when addr was ":0".
func (m *Module) Addr() string {
	if m.ln == nil {
		return m.addr
	}
	return m.ln.Addr().String()
}

func (m *Module) handleStatus(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"module": m.name, "ok": true}
	for k, v := range m.status() {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func (m *Module) handleCall(w http.ResponseWriter, r *http.Request) {
	target := r.PathValue("target")
	args, err := decodeArgs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), m.timeout)
	defer cancel()
	res, err := m.broker.ExecSync(ctx, target, args, module.WithSource(m.name))
	if err != nil {
		writeError(w, codeFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": res})
}

func (m *Module) handleTrigger(w http.ResponseWriter, r *http.Request) {
	event := r.PathValue("event")
	args, err := decodeArgs(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := m.broker.Trigger(event, args, module.WithSource(m.name)); err != nil {
		writeError(w, codeFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

func decodeArgs(r *http.Request) (module.Args, error) {
	defer func() { _ = r.Body.Close() }()
	var args module.Args
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		// An empty body means no arguments.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return args, nil
}

func codeFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownModule),
		errors.Is(err, registry.ErrUnknownMethod),
		errors.Is(err, module.ErrInvalidAddress):
		return http.StatusNotFound
	case errors.Is(err, dispatch.ErrShutdown):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
