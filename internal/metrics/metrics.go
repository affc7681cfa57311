// Package metrics wires the runtime's Prometheus collectors, mirroring
// the registry shape the teacher iteration (go-server-3) exposes
// alongside its hub, extended with instance/tick and system gauges.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Registry holds every Prometheus collector the runtime publishes. A
// nil *Registry is valid everywhere it is accepted as an optional
// dependency — callers guard with a nil check before use.
type Registry struct {
	reg *prometheus.Registry

	ActiveSessions    prometheus.Gauge
	ActiveInstances   prometheus.Gauge
	AttachedClients   prometheus.Gauge
	MessagesPublished prometheus.Counter
	MessagesDelivered prometheus.Counter
	AcceptErrors      prometheus.Counter
	AdmissionRejected prometheus.Counter
	TickDuration      prometheus.Histogram
	TickPanics        prometheus.Counter

	SystemCPUPercent    prometheus.Gauge
	SystemMemoryPercent prometheus.Gauge
}

// NewRegistry builds a fresh, independent Prometheus registry so tests
// can construct as many as they like without colliding on the default
// global registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hostess_sessions_active",
			Help: "Number of WebSocket sessions currently accepted (lobby or attached).",
		}),
		ActiveInstances: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hostess_instances_active",
			Help: "Number of instances currently running in the lobby.",
		}),
		AttachedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hostess_clients_attached",
			Help: "Number of clients currently attached to an instance.",
		}),
		MessagesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "hostess_messages_published_total",
			Help: "Total CustomMsg frames received from clients.",
		}),
		MessagesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "hostess_messages_delivered_total",
			Help: "Total Custom frames delivered to clients.",
		}),
		AcceptErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "hostess_accept_errors_total",
			Help: "Total WebSocket upgrade/accept failures.",
		}),
		AdmissionRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "hostess_join_rejected_total",
			Help: "Total JoinInstance attempts rejected for being at capacity.",
		}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hostess_tick_duration_seconds",
			Help:    "Wall-clock duration of one instance Tick call.",
			Buckets: prometheus.DefBuckets,
		}),
		TickPanics: factory.NewCounter(prometheus.CounterOpts{
			Name: "hostess_tick_panics_total",
			Help: "Total instance-terminating panics recovered from Logic.Tick.",
		}),
		SystemCPUPercent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hostess_system_cpu_percent",
			Help: "Host CPU utilization percentage, sampled via gopsutil.",
		}),
		SystemMemoryPercent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hostess_system_memory_percent",
			Help: "Host memory utilization percentage, sampled via gopsutil.",
		}),
	}
}

// Handler returns an HTTP handler exposing this registry in the
// Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// SampleSystem updates the gopsutil-backed system gauges. It is safe
// to call periodically from a background goroutine. The CPU figure is
// measured against the previous call (a zero sampling interval), so a
// call does not sleep.
func (r *Registry) SampleSystem() {
	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		r.SystemCPUPercent.Set(percentages[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.SystemMemoryPercent.Set(vm.UsedPercent)
	}
}
