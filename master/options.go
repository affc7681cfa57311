package master

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/horup/hostess/internal/events"
	"github.com/horup/hostess/internal/metrics"
)

// Option configures a Master built by New. The functional-options
// shape stands in for the constructor-argument struct the original
// host used, letting most callers write master.New(addr, ctor) and
// only reach for options when they need to.
type Option func(*Master)

// WithLogger sets the structured logger used for accept-loop and
// session lifecycle events. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Master) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics attaches a metrics registry. Every collector update is
// nil-guarded, so this is optional.
func WithMetrics(reg *metrics.Registry) Option {
	return func(m *Master) {
		m.metrics = reg
	}
}

// WithEventsBus attaches an optional lifecycle telemetry bus. Publish
// calls are best-effort and never block session handling.
func WithEventsBus(bus *events.Bus) Option {
	return func(m *Master) {
		m.events = bus
	}
}

// WithAdmissionLimiter caps the rate of newly accepted connections.
// Burst must be at least 1. Without this option, connections are
// accepted as fast as the listener delivers them.
func WithAdmissionLimiter(r rate.Limit, burst int) Option {
	return func(m *Master) {
		m.limiter = rate.NewLimiter(r, burst)
	}
}

// WithInstanceCreation enables or disables CreateInstance from
// clients. It is disabled by default — instances are expected to be
// created out-of-band (for example by an operator tool calling
// Master.Lobby().NewInstance, or a matchmaking service in front of
// the master) unless a caller opts in.
func WithInstanceCreation(enabled bool) Option {
	return func(m *Master) {
		m.allowInstanceCreation = enabled
	}
}

// WithPath sets the HTTP path ListenAndServe mounts the WebSocket
// upgrade endpoint on. Defaults to "/ws". Handler does not check the
// request path; the caller's mux decides where it is mounted.
func WithPath(path string) Option {
	return func(m *Master) {
		if path != "" {
			m.path = path
		}
	}
}

// WithMetricsAddr makes ListenAndServe also run a second HTTP
// listener on addr exposing /healthz and /metrics. Has no effect
// unless WithMetrics is also given.
func WithMetricsAddr(addr string) Option {
	return func(m *Master) {
		m.metricsAddr = addr
	}
}
