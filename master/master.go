// Package master implements the WebSocket accept loop and per-session
// lobby state machine: upgrading connections, reading a client's
// Hello, listing and creating instances, and handing a session's sink
// off to an instance once it joins one.
package master

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/horup/hostess/instance"
	"github.com/horup/hostess/internal/events"
	"github.com/horup/hostess/internal/metrics"
	"github.com/horup/hostess/lobby"
	"github.com/horup/hostess/netio"
	"github.com/horup/hostess/ratemeter"
)

// Master accepts WebSocket connections over HTTP and runs the lobby
// protocol for each one. It owns exactly one Lobby, created at
// construction time from the Constructor passed to New.
//
// Master only owns the upgrade route. An embedder composes Handler()
// into its own mux alongside a static file server or any other route;
// ListenAndServe is a convenience for the common case of running the
// game listener (and, if WithMetricsAddr is set, a second metrics
// listener) as the whole process.
type Master struct {
	addr        string
	path        string
	metricsAddr string

	logger  *zap.Logger
	metrics *metrics.Registry
	events  *events.Bus
	limiter *rate.Limiter

	allowInstanceCreation bool

	lobby *lobby.Lobby

	mu      sync.Mutex
	rootCtx context.Context
}

// New constructs a Master accepting WebSocket upgrades at "/ws" on
// addr. Instances are built by ctor whenever a client (or an operator
// via Lobby()) creates one. Nothing is listening until ListenAndServe
// runs, or until Handler() is mounted on a caller-owned server.
func New(addr string, ctor instance.Constructor, opts ...Option) *Master {
	m := &Master{
		addr:                  addr,
		path:                  "/ws",
		allowInstanceCreation: false,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.lobby = lobby.New(ctor, m.logger, m.metrics, m.events)
	return m
}

// Lobby exposes the master's instance directory, for operator tools
// that want to create or inspect instances outside the client
// protocol (for example with CreateInstance disabled).
func (m *Master) Lobby() *lobby.Lobby {
	return m.lobby
}

// Handler returns the WebSocket upgrade endpoint alone, for embedding
// into a caller-owned http.ServeMux alongside a static file server.
// The root context instances are spawned under defaults to
// context.Background() unless ListenAndServe has set one; embedders
// that want spawned instances tied to their own shutdown should call
// SetRootContext before serving any requests.
func (m *Master) Handler() http.Handler {
	return http.HandlerFunc(m.serveUpgrade)
}

// SetRootContext fixes the context instances are spawned under, for
// embedders that mount Handler() on their own server instead of
// calling ListenAndServe.
func (m *Master) SetRootContext(ctx context.Context) {
	m.mu.Lock()
	m.rootCtx = ctx
	m.mu.Unlock()
}

func (m *Master) instanceRootCtx() context.Context {
	m.mu.Lock()
	ctx := m.rootCtx
	m.mu.Unlock()
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func (m *Master) serveUpgrade(w http.ResponseWriter, r *http.Request) {
	if m.limiter != nil && !m.limiter.Allow() {
		if m.metrics != nil {
			m.metrics.AcceptErrors.Inc()
		}
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		if m.metrics != nil {
			m.metrics.AcceptErrors.Inc()
		}
		m.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	rootCtx := m.instanceRootCtx()
	if m.metrics != nil {
		m.metrics.ActiveSessions.Inc()
	}

	go func() {
		defer conn.Close()
		if m.metrics != nil {
			defer m.metrics.ActiveSessions.Dec()
		}
		sink := netio.NewSink(conn, ratemeter.New())
		stream := netio.NewStream(conn, ratemeter.New())
		m.runSession(rootCtx, sink, stream)
	}()
}

// ListenAndServe starts the game listener, and — if WithMetricsAddr
// was given — a second listener exposing /healthz and /metrics on its
// own address. It blocks until ctx is cancelled or either listener
// fails, then closes both and returns.
func (m *Master) ListenAndServe(ctx context.Context) error {
	m.SetRootContext(ctx)

	mux := http.NewServeMux()
	mux.Handle(m.path, m.Handler())
	gameSrv := &http.Server{Addr: m.addr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m.logger.Info("master listening", zap.String("addr", m.addr), zap.String("path", m.path))
		if err := gameSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("master: game listener: %w", err)
		}
		return nil
	})

	var metricsSrv *http.Server
	if m.metricsAddr != "" && m.metrics != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", m.metrics.Handler())
		metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		metricsSrv = &http.Server{Addr: m.metricsAddr, Handler: metricsMux}

		g.Go(func() error {
			m.logger.Info("metrics listening", zap.String("addr", m.metricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("master: metrics listener: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		_ = gameSrv.Close()
		if metricsSrv != nil {
			_ = metricsSrv.Close()
		}
		return nil
	})

	return g.Wait()
}
