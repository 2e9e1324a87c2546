// Package metrics exposes the chat server's Prometheus collectors. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophchat"

type Metrics struct {
	registry       *prometheus.Registry
	sessionsOnline prometheus.Gauge
	connections    prometheus.Counter
	authAttempts   *prometheus.CounterVec
	commands       *prometheus.CounterVec
	pushes         *prometheus.CounterVec
	decryptSkips   prometheus.Counter
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_online",
			Help:      "Authenticated sessions currently registered.",
		}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Accepted client connections.",
		}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by method and result.",
		}, []string{"method", "result"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled after authentication.",
		}, []string{"command"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_total",
			Help:      "Real-time notifications pushed to online peers.",
		}, []string{"kind"}),
		decryptSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_decrypt_skips_total",
			Help:      "History entries skipped because they could not be decrypted.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionsOnline,
		m.connections,
		m.authAttempts,
		m.commands,
		m.pushes,
		m.decryptSkips,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SessionOnline() {
	if m != nil {
		m.sessionsOnline.Inc()
	}
}

func (m *Metrics) SessionOffline() {
	if m != nil {
		m.sessionsOnline.Dec()
	}
}

func (m *Metrics) ConnectionAccepted() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) AuthAttempt(method, result string) {
	if m != nil {
		m.authAttempts.WithLabelValues(method, result).Inc()
	}
}

func (m *Metrics) Command(name string) {
	if m != nil {
		m.commands.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) Push(kind string) {
	if m != nil {
		m.pushes.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) DecryptSkipped(n int) {
	if m != nil && n > 0 {
		m.decryptSkips.Add(float64(n))
	}
}
