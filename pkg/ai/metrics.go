package ai

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records per-provider request outcomes, token usage and cost.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	costsTotal      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg. Pass a fresh registry in tests
// to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_requests_total",
				Help: "Total number of AI backend requests by provider and status",
			},
			[]string{"provider", "status", "error_type"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_tokens_total",
				Help: "Total number of tokens used in AI requests",
			},
			[]string{"provider", "type"},
		),
		costsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ai_costs_total",
				Help: "Total cost in USD for AI requests",
			},
			[]string{"provider"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ai_request_duration_seconds",
				Help:    "Duration of AI backend requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
	}
}

// observe records one completed request.
func (m *Metrics) observe(provider string, usage Usage, err error, duration time.Duration) {
	status := "success"
	errorType := "none"
	if err != nil {
		status = "error"
		errorType = TypeOf(err).String()
	}

	m.requestsTotal.WithLabelValues(provider, status, errorType).Inc()
	m.tokensTotal.WithLabelValues(provider, "prompt").Add(float64(usage.PromptTokens))
	m.tokensTotal.WithLabelValues(provider, "completion").Add(float64(usage.CompletionTokens))
	m.costsTotal.WithLabelValues(provider).Add(usage.CostUSD)
	m.requestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// instrumentedProvider wraps a Provider with metrics recording.
type instrumentedProvider struct {
	inner   Provider
	metrics *Metrics
}

// WithMetrics wraps provider so every Complete call is observed, including
// failures and the partial usage they carry.
func WithMetrics(provider Provider, metrics *Metrics) Provider {
	if metrics == nil {
		return provider
	}
	return &instrumentedProvider{inner: provider, metrics: metrics}
}

func (p *instrumentedProvider) Name() string { return p.inner.Name() }

func (p *instrumentedProvider) Complete(ctx context.Context, prompt string) (Completion, error) {
	start := time.Now()
	completion, err := p.inner.Complete(ctx, prompt)

	usage := completion.Usage
	if err != nil {
		usage = UsageOf(err)
	}
	p.metrics.observe(p.inner.Name(), usage, err, time.Since(start))

	return completion, err
}
