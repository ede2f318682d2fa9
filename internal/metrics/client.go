package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records outbound API traffic. A nil *ClientMetrics is a no-op.
type ClientMetrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	refreshes *prometheus.CounterVec
	queued    prometheus.Counter
	retries   prometheus.Counter
}

// NewClientMetrics registers the client metrics on the provided registerer.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distritherm_api_requests_total",
		Help: "API requests by method and response status.",
	}, []string{"method", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "distritherm_api_request_duration_seconds",
		Help:    "API round trip duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distritherm_api_token_refreshes_total",
		Help: "Access token refresh attempts by outcome.",
	}, []string{"outcome"})
	queued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "distritherm_api_queued_requests_total",
		Help: "Requests suspended while a token refresh was in flight.",
	})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "distritherm_api_retries_total",
		Help: "Requests replayed after a token refresh.",
	})
	reg.MustRegister(requests, duration, refreshes, queued, retries)
	return &ClientMetrics{
		requests:  requests,
		duration:  duration,
		refreshes: refreshes,
		queued:    queued,
		retries:   retries,
	}
}

// ObserveRequest records a completed round trip. status is 0 for transport failures.
func (c *ClientMetrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if c == nil || c.requests == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	c.requests.WithLabelValues(method, label).Inc()
	c.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (c *ClientMetrics) IncRefresh(success bool) {
	if c == nil || c.refreshes == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.refreshes.WithLabelValues(outcome).Inc()
}

func (c *ClientMetrics) IncQueued() {
	if c == nil || c.queued == nil {
		return
	}
	c.queued.Inc()
}

func (c *ClientMetrics) IncRetry() {
	if c == nil || c.retries == nil {
		return
	}
	c.retries.Inc()
}

// Refreshes returns the counter for the given outcome, for inspection in tests.
func (c *ClientMetrics) Refreshes(success bool) prometheus.Counter {
	if c == nil || c.refreshes == nil {
		return nil
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	return c.refreshes.WithLabelValues(outcome)
}
