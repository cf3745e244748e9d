package tools

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "seikenbot"

const (
	UpdateAccepted     = "accepted"
	UpdateIgnored      = "ignored"
	UpdateUnauthorized = "unauthorized"
	UpdateMalformed    = "malformed"
)

func PrometheusHTTPMetricsHandler(logger promhttp.Logger) http.Handler {
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog: logger,
		}),
	)
}

// BotMetrics collects webhook and handler metrics.
type BotMetrics struct {
	updates  *prometheus.CounterVec
	handlers *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewBotMetrics(reg prometheus.Registerer) (*BotMetrics, error) {
	m := &BotMetrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "updates_total",
			Help:      "Number of received webhook updates by status.",
		}, []string{"status"}),
		handlers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "handler_invocations_total",
			Help:      "Number of handler invocations by dispatch group, handler and outcome.",
		}, []string{"group", "handler", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "handler_duration_seconds",
			Help:      "Handler execution time.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"handler"}),
	}
	for _, c := range []prometheus.Collector{m.updates, m.handlers, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *BotMetrics) UpdateReceived(status string) {
	m.updates.WithLabelValues(status).Inc()
}

func (m *BotMetrics) ObserveHandler(group int, name, outcome string, elapsed time.Duration) {
	m.handlers.WithLabelValues(strconv.Itoa(group), name, outcome).Inc()
	m.latency.WithLabelValues(name).Observe(elapsed.Seconds())
}
