// Command loadtest ramps up a configurable number of hostess clients
// against a running master, joins them all into one instance, and
// reports connection and message throughput at a fixed interval.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/horup/hostess/reconnect"
	"github.com/horup/hostess/wire"
)

type config struct {
	url               string
	targetConnections int
	rampRate          int
	sustainDuration   time.Duration
	reportInterval    time.Duration
	pingInterval      time.Duration
}

type state struct {
	activeConnections int64
	totalCreated      int64
	failedConnections int64
	messagesReceived  int64
}

func main() {
	cfg := parseFlags()
	st := &state{}

	log.Printf(strings.Repeat("=", 72))
	log.Printf("hostess loadtest: %d connections at %d/sec against %s", cfg.targetConnections, cfg.rampRate, cfg.url)
	log.Printf(strings.Repeat("=", 72))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instanceID := make(chan uuid.UUID, 1)
	go runSeedClient(ctx, cfg, instanceID)

	var seededInstance uuid.UUID
	select {
	case seededInstance = <-instanceID:
	case <-ctx.Done():
		return
	}

	go report(ctx, cfg, st)
	rampUp(ctx, cfg, st, seededInstance)

	log.Printf("ramp-up complete, sustaining for %s", cfg.sustainDuration)
	select {
	case <-time.After(cfg.sustainDuration):
	case <-ctx.Done():
	}
	printReport(st)
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.url, "url", envOr("LOADTEST_URL", "ws://localhost:8080/ws"), "hostess master WebSocket URL")
	flag.IntVar(&cfg.targetConnections, "connections", 500, "target number of connections")
	flag.IntVar(&cfg.rampRate, "ramp-rate", 50, "connections per second during ramp-up")
	flag.DurationVar(&cfg.sustainDuration, "duration", 60*time.Second, "how long to sustain load after ramp-up")
	flag.DurationVar(&cfg.reportInterval, "report-interval", 5*time.Second, "reporting interval")
	flag.DurationVar(&cfg.pingInterval, "ping-interval", time.Second, "per-client ping interval")
	flag.Parse()
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// runSeedClient creates the instance every other client joins, then
// keeps itself connected for the rest of the run as client zero.
func runSeedClient(ctx context.Context, cfg config, out chan<- uuid.UUID) {
	c := reconnect.New(cfg.url, uuid.New(), "loadtest-seed")
	go c.Run(ctx)

	if err := c.Connect(ctx); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.Messages():
			if _, ok := msg.(wire.JoinedLobby); ok {
				_ = c.Send(wire.CreateInstance{})
			}
			if created, ok := msg.(wire.InstanceCreated); ok {
				out <- created.InstanceID
			}
		}
	}
}

func rampUp(ctx context.Context, cfg config, st *state, instanceID uuid.UUID) {
	interval := time.Second / time.Duration(maxInt(cfg.rampRate, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < cfg.targetConnections; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go runClient(ctx, cfg, st, instanceID)
			atomic.AddInt64(&st.totalCreated, 1)
		}
	}
}

func runClient(ctx context.Context, cfg config, st *state, instanceID uuid.UUID) {
	c := reconnect.New(cfg.url, uuid.New(), fmt.Sprintf("load-%d", time.Now().UnixNano()))
	go c.Run(ctx)

	if err := c.Connect(ctx); err != nil {
		atomic.AddInt64(&st.failedConnections, 1)
		return
	}

	ticker := time.NewTicker(cfg.pingInterval)
	defer ticker.Stop()

	joined := false
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.Messages():
			switch msg.(type) {
			case wire.JoinedLobby:
				_ = c.Send(wire.JoinInstance{InstanceID: instanceID})
			case wire.JoinedInstance:
				if !joined {
					joined = true
					atomic.AddInt64(&st.activeConnections, 1)
				}
			}
			atomic.AddInt64(&st.messagesReceived, 1)
		case <-ticker.C:
			if err := c.Send(wire.ClientPing{Tick: float64(time.Now().UnixMilli())}); err != nil {
				atomic.AddInt64(&st.failedConnections, 1)
			}
		}
	}
}

func report(ctx context.Context, cfg config, st *state) {
	ticker := time.NewTicker(cfg.reportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			printReport(st)
			return
		case <-ticker.C:
			printReport(st)
		}
	}
}

func printReport(st *state) {
	log.Printf("active=%d created=%d failed=%d messages=%d",
		atomic.LoadInt64(&st.activeConnections),
		atomic.LoadInt64(&st.totalCreated),
		atomic.LoadInt64(&st.failedConnections),
		atomic.LoadInt64(&st.messagesReceived),
	)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
