package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bryanwahyu/bank-advisor/internal/domain/ai"
)

// Metrics stores application metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	RequestsInProgress prometheus.Gauge

	AdvisoryStages   *prometheus.CounterVec
	AdvisoryOutcomes *prometheus.CounterVec

	AICalls   *prometheus.CounterVec
	AILatency *prometheus.HistogramVec
	AITokens  *prometheus.CounterVec

	TicketsIssued *prometheus.CounterVec

	StartTime time.Time
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_advisor_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_advisor_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		RequestsInProgress: f.NewGauge(prometheus.GaugeOpts{
			Name: "bank_advisor_http_requests_in_progress",
			Help: "HTTP requests currently being served.",
		}),
		AdvisoryStages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_advisor_stage_total",
			Help: "Advisory stages by service, stage and source (ai or backup).",
		}, []string{"service", "stage", "source"}),
		AdvisoryOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_advisor_outcomes_total",
			Help: "Advisory requests by service and terminal state.",
		}, []string{"service", "state"}),
		AICalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_advisor_ai_calls_total",
			Help: "Language model calls by model and outcome.",
		}, []string{"model", "outcome"}),
		AILatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_advisor_ai_call_duration_seconds",
			Help:    "Language model call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"model"}),
		AITokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_advisor_ai_tokens_total",
			Help: "Tokens consumed by kind (prompt or completion).",
		}, []string{"model", "kind"}),
		TicketsIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_advisor_tickets_issued_total",
			Help: "Queue tickets issued by service.",
		}, []string{"service"}),
		StartTime: time.Now(),
	}
}

// ObserveAICall records one language model call.
func (m *Metrics) ObserveAICall(model, outcome string, d time.Duration, usage ai.Usage) {
	m.AICalls.WithLabelValues(model, outcome).Inc()
	m.AILatency.WithLabelValues(model).Observe(d.Seconds())
	m.AITokens.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
	m.AITokens.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
}

// ObserveStage records which path answered an advisory stage.
func (m *Metrics) ObserveStage(service, stage string, backup bool) {
	source := "ai"
	if backup {
		source = "backup"
	}
	m.AdvisoryStages.WithLabelValues(service, stage, source).Inc()
}

// ObserveOutcome records the terminal state of an advisory request.
func (m *Metrics) ObserveOutcome(service, state string) {
	m.AdvisoryOutcomes.WithLabelValues(service, state).Inc()
}

func (m *Metrics) ObserveTicket(service string) {
	m.TicketsIssued.WithLabelValues(service).Inc()
}

// Uptime since the metrics were created, i.e. since process start.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.StartTime)
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsMiddleware tracks request metrics
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInProgress.Inc()
		defer m.RequestsInProgress.Dec()

		start := time.Now()
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// MetricsHandler serves the registry in the Prometheus text format.
func (m *Metrics) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// routePattern returns the matched chi route pattern, not the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
