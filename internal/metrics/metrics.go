package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every devrun collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	ExecTotal        *prometheus.CounterVec
	ExecDuration     *prometheus.HistogramVec
	PolicyDenials    *prometheus.CounterVec
	ManagedProcesses prometheus.Gauge
	AutoCommits      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ExecTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devrun_exec_total",
				Help: "Total command executions by outcome",
			},
			[]string{"program", "outcome"},
		),
		ExecDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devrun_exec_duration_seconds",
				Help:    "Time to execute a command",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0, 60.0, 180.0, 300.0},
			},
			[]string{"program"},
		),
		PolicyDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devrun_policy_denials_total",
				Help: "Total commands rejected by policy",
			},
			[]string{"program", "reason"},
		),
		ManagedProcesses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "devrun_managed_processes",
				Help: "Number of registered long-running processes",
			},
		),
		AutoCommits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devrun_auto_commits_total",
				Help: "Total auto-commit attempts by result",
			},
			[]string{"result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devrun_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devrun_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.ExecTotal,
			m.ExecDuration,
			m.PolicyDenials,
			m.ManagedProcesses,
			m.AutoCommits,
			m.HTTPRequests,
			m.HTTPDuration,
		)
	}
	return m
}

// ObserveExec records one finished command.
func (m *Metrics) ObserveExec(program, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ExecTotal.WithLabelValues(program, outcome).Inc()
	m.ExecDuration.WithLabelValues(program).Observe(duration.Seconds())
}

// PolicyDenied records a rejected command.
func (m *Metrics) PolicyDenied(program, reason string) {
	if m == nil {
		return
	}
	m.PolicyDenials.WithLabelValues(program, reason).Inc()
}

// SetManagedProcesses records the registry size.
func (m *Metrics) SetManagedProcesses(n int) {
	if m == nil {
		return
	}
	m.ManagedProcesses.Set(float64(n))
}

// AutoCommit records an auto-commit attempt; result is "committed",
// "nothing" or "failed".
func (m *Metrics) AutoCommit(result string) {
	if m == nil {
		return
	}
	m.AutoCommits.WithLabelValues(result).Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// EchoMiddleware returns Echo middleware that instruments HTTP requests.
func (m *Metrics) EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			m.HTTPRequests.WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
			m.HTTPDuration.WithLabelValues(c.Request().Method, c.Path()).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
