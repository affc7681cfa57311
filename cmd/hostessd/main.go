// Command hostessd runs a standalone hostess master serving the echo
// demo Logic, a static file server, and a Prometheus/health listener.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/horup/hostess/examples/echo"
	"github.com/horup/hostess/internal/config"
	"github.com/horup/hostess/internal/events"
	"github.com/horup/hostess/internal/logging"
	"github.com/horup/hostess/internal/metrics"
	"github.com/horup/hostess/master"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hostessd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	metricsRegistry := metrics.NewRegistry()

	var bus *events.Bus
	if cfg.Events.Enabled {
		bus, err = events.Connect(events.Config{URL: cfg.Events.URL}, logger)
		if err != nil {
			logger.Warn("events bus unavailable, continuing without it", zap.Error(err))
			bus = nil
		} else {
			defer bus.Close()
		}
	}

	opts := []master.Option{
		master.WithLogger(logger),
		master.WithMetrics(metricsRegistry),
		master.WithPath(cfg.Server.Path),
		master.WithInstanceCreation(cfg.Server.AllowCreate),
		master.WithAdmissionLimiter(rate.Limit(cfg.Server.AdmissionRate), cfg.Server.AdmissionBurst),
	}
	if bus != nil {
		opts = append(opts, master.WithEventsBus(bus))
	}

	m := master.New(cfg.Server.Addr, echo.New, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	m.SetRootContext(ctx)

	// The game mux owns the upgrade route plus everything else the demo
	// serves; master.Master only ever claims the one path.
	gameMux := http.NewServeMux()
	gameMux.Handle(cfg.Server.Path, m.Handler())
	gameMux.Handle("/", http.FileServer(http.Dir(cfg.Server.PublicDir)))
	gameSrv := &http.Server{Addr: cfg.Server.Addr, Handler: gameMux}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("game listener starting", zap.String("addr", cfg.Server.Addr), zap.String("path", cfg.Server.Path))
		if err := gameSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("game listener: %w", err)
		}
		return nil
	})

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsRegistry.Handler())
		metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux}

		g.Go(func() error {
			logger.Info("metrics listener starting", zap.String("addr", cfg.Metrics.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		sampleSystem(gctx, metricsRegistry)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = gameSrv.Shutdown(shutdownCtx)
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("hostessd exited with error", zap.Error(err))
		return err
	}
	logger.Info("hostessd shut down cleanly")
	return nil
}

// sampleSystem refreshes the gopsutil-backed system gauges every five
// seconds until ctx is cancelled.
func sampleSystem(ctx context.Context, reg *metrics.Registry) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.SampleSystem()
		}
	}
}
