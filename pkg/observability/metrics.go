package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/openagi/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	RelayRequests *prometheus.CounterVec
	RelayDuration prometheus.Histogram
	Connections   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openagi_runs_total",
				Help: "Total number of workflow runs by outcome",
			},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "openagi_run_duration_seconds",
				Help:    "Duration of workflow runs",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		RelayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openagi_relay_requests_total",
				Help: "Total number of upstream calls by HTTP status",
			},
			[]string{"status"},
		),
		RelayDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "openagi_relay_duration_seconds",
				Help:    "Duration of upstream calls",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
		Connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openagi_connections_total",
				Help: "Total number of proposed connections by acceptance",
			},
			[]string{"accepted"},
		),
	}
	reg.MustRegister(m.Runs, m.RunDuration, m.RelayRequests, m.RelayDuration, m.Connections)
	return m
}

// OutcomeSuccess labels runs that returned generated text.
const OutcomeSuccess = "success"

// Hooks returns lifecycle hooks that record into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			outcome := OutcomeSuccess
			if e.Outcome != "" {
				outcome = string(e.Outcome)
			}
			m.Runs.WithLabelValues(outcome).Inc()
			m.RunDuration.Observe(e.Duration.Seconds())
		},
		OnRelayReturn: func(ctx context.Context, e *domain.RelayEvent) {
			status := "error"
			if e.StatusCode != 0 {
				status = strconv.Itoa(e.StatusCode)
			}
			m.RelayRequests.WithLabelValues(status).Inc()
			m.RelayDuration.Observe(e.Duration.Seconds())
		},
		OnConnect: func(ctx context.Context, e *domain.ConnectEvent) {
			m.Connections.WithLabelValues(strconv.FormatBool(e.Accepted)).Inc()
		},
	}
}
