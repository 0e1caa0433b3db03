// Package promexport publishes dispatch counters and queue depth as
// Prometheus metrics. Values are read at scrape time straight from the
// manager's atomic counters; there is no sampling loop.
package promexport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/modkit/internal/dispatch"
)

// Module serves GET /metrics on its own registry, so several managers can
// export side by side on different ports.
type Module struct {
	name string
	log  *slog.Logger
	addr string

	reg *prometheus.Registry
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

// New creates an exporter over the given counter sources. stats feeds the
// dispatch counters, queueLen the current queue depth.
func New(name, addr string, stats func() dispatch.Stats, queueLen func() int, opts ...Option) *Module {
	m := &Module{
		name: name,
		log:  slog.Default(),
		addr: addr,
		reg:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	counter := func(name, help string, read func(dispatch.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "modkit",
			Subsystem: "dispatch",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(stats())) })
	}

	m.reg.MustRegister(
		counter("items_total", "Queue items fully processed by the loop.",
			func(s dispatch.Stats) uint64 { return s.Items }),
		counter("tasks_total", "Processed items that were queued calls.",
			func(s dispatch.Stats) uint64 { return s.Tasks }),
		counter("events_total", "Processed items that were events.",
			func(s dispatch.Stats) uint64 { return s.Events }),
		counter("execs_total", "Immediate invocations, including inline bridged calls.",
			func(s dispatch.Stats) uint64 { return s.Execs }),
		counter("handlers_total", "Individual event handler invocations.",
			func(s dispatch.Stats) uint64 { return s.Handlers }),
		counter("failures_total", "Routed invocation failures.",
			func(s dispatch.Stats) uint64 { return s.Failed }),
		counter("idle_transitions_total", "Busy-to-empty queue transitions.",
			func(s dispatch.Stats) uint64 { return s.IdleFired }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "modkit",
			Name:      "queue_depth",
			Help:      "Items currently waiting in the priority queue.",
		}, func() float64 { return float64(queueLen()) }),
	)

	return m
}

// Name implements module.Module.
func (m *Module) Name() string { return m.name }

// Handler returns the scrape endpoint. Exposed for tests and embedding.
func (m *Module) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
	return mux
}

// Activate binds the listener and begins serving scrapes.
func (m *Module) Activate(context.Context) error {
	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return fmt.Errorf("promexport: %s: listen %s: %w", m.name, m.addr, err)
	}
	m.ln = ln
	m.srv = &http.Server{Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error("metrics server failed", "module", m.name, "error", err)
		}
	}()
	m.log.Info("metrics listening", "module", m.name, "addr", ln.Addr().String())
	return nil
}

// Deactivate stops the scrape endpoint.
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
