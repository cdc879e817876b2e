package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics exposes discovery counters on /metrics
type PrometheusMetrics struct {
	runDuration      *prometheus.HistogramVec
	searchTotal      *prometheus.CounterVec
	researchTotal    *prometheus.CounterVec
	researchDuration *prometheus.HistogramVec
	llmTokens        *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devscout_run_duration_seconds",
				Help:    "Duration of discovery runs in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"profile", "status"},
		),
		searchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devscout_searches_total",
				Help: "Total number of web search calls",
			},
			[]string{"provider", "status"},
		),
		researchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devscout_research_tasks_total",
				Help: "Total number of per-tool research tasks",
			},
			[]string{"status"},
		),
		researchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devscout_research_duration_seconds",
				Help:    "Duration of per-tool research tasks in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devscout_llm_tokens_total",
				Help: "Total number of tokens consumed by LLM calls",
			},
			[]string{"model"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devscout_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devscout_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 60, 300, 600},
			},
			[]string{"method", "path"},
		),
	}
}

func (p *PrometheusMetrics) ObserveRun(profile string, duration time.Duration, success bool) {
	p.runDuration.WithLabelValues(profile, statusLabel(success)).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveSearch(provider string, success bool) {
	p.searchTotal.WithLabelValues(provider, statusLabel(success)).Inc()
}

func (p *PrometheusMetrics) ObserveResearch(duration time.Duration, success bool) {
	status := statusLabel(success)
	p.researchTotal.WithLabelValues(status).Inc()
	p.researchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveLLMTokens(model string, tokens int64) {
	p.llmTokens.WithLabelValues(model).Add(float64(tokens))
}

func (p *PrometheusMetrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
