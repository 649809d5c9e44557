package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the request collectors shared by every MetricsMiddleware.
//
// Metrics:
//   - recipe_api_requests_total: requests by endpoint and status class
//   - recipe_api_request_duration_seconds: request duration histogram
//   - recipe_api_timeouts_total: requests answered with 408
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	timeoutsTotal   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests handled by the middleware chain",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of requests through the middleware chain in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		timeoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "timeouts_total",
				Help:      "Total number of requests answered with a timeout",
			},
			[]string{"endpoint"},
		),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.timeoutsTotal)
	return m
}

// MetricsMiddleware records request counts and latency per endpoint.
type MetricsMiddleware struct {
	Base
	endpoint string
	metrics  *Metrics
}

// NewMetricsMiddleware creates a MetricsMiddleware in the custom category.
func NewMetricsMiddleware(endpoint string, metrics *Metrics, opts ...Option) *MetricsMiddleware {
	o := buildOptions("MetricsMiddleware", opts)
	return &MetricsMiddleware{
		Base:     NewBase(o.name, CategoryCustom, o.timeout),
		endpoint: endpoint,
		metrics:  metrics,
	}
}

// Invoke implements Middleware.
func (m *MetricsMiddleware) Invoke(ctx context.Context, next Handler, req *Request) (Response, error) {
	start := time.Now()
	resp, err := next(ctx, req)

	status := "error"
	if err == nil {
		status = statusClass(resp.StatusCode())
		if resp.StatusCode() == 408 {
			m.metrics.timeoutsTotal.WithLabelValues(m.endpoint).Inc()
		}
	}
	m.metrics.requestsTotal.WithLabelValues(m.endpoint, status).Inc()
	m.metrics.requestDuration.WithLabelValues(m.endpoint).Observe(time.Since(start).Seconds())
	return resp, err
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
