// Package metrics exposes exchange, command and sensor counters for
// Prometheus. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coapnotify"

type Metrics struct {
	exchanges *prometheus.CounterVec
	inflight  prometheus.Gauge
	blocks    prometheus.Counter
	commands  *prometheus.CounterVec
	rtt       prometheus.Histogram
	reading   prometheus.Gauge
	interval  prometheus.Gauge
	breaker   prometheus.Gauge
	skipped   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "CoAP exchanges by kind and outcome.",
		}, []string{"kind", "outcome"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exchange_in_flight",
			Help:      "1 while an exchange waits for its response.",
		}),
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block2_continuations_total",
			Help:      "Block2 follow-up requests sent.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_commands_total",
			Help:      "Remote command tokens by result.",
		}, []string{"result"}),
		rtt: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_rtt_seconds",
			Help:      "Time from send until the exchange completed.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		reading: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_value",
			Help:      "Last sensor reading.",
		}),
		interval: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notification_interval_minutes",
			Help:      "Configured notification interval.",
		}),
		breaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_skipped_total",
			Help:      "Notification cycles skipped while the breaker was open.",
		}),
	}
	reg.MustRegister(m.exchanges, m.inflight, m.blocks, m.commands, m.rtt,
		m.reading, m.interval, m.breaker, m.skipped)
	return m
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ExchangeStarted() {
	if m == nil {
		return
	}
	m.inflight.Set(1)
}

// ExchangeFinished records the outcome of an exchange of kind.
func (m *Metrics) ExchangeFinished(kind, outcome string) {
	if m == nil {
		return
	}
	m.inflight.Set(0)
	m.exchanges.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) BlockRequested() {
	if m == nil {
		return
	}
	m.blocks.Inc()
}

func (m *Metrics) Commands(applied, skipped, ignored, dropped int) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues("applied").Add(float64(applied))
	m.commands.WithLabelValues("skipped").Add(float64(skipped))
	m.commands.WithLabelValues("ignored").Add(float64(ignored))
	m.commands.WithLabelValues("dropped").Add(float64(dropped))
}

func (m *Metrics) ObserveRTT(d time.Duration) {
	if m == nil {
		return
	}
	m.rtt.Observe(d.Seconds())
}

func (m *Metrics) Reading(v float64) {
	if m == nil {
		return
	}
	m.reading.Set(v)
}

func (m *Metrics) Interval(minutes int) {
	if m == nil {
		return
	}
	m.interval.Set(float64(minutes))
}

func (m *Metrics) BreakerState(state int) {
	if m == nil {
		return
	}
	m.breaker.Set(float64(state))
}

func (m *Metrics) CycleSkipped() {
	if m == nil {
		return
	}
	m.skipped.Inc()
}
