package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sqsgateway"

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of handled HTTP requests by route and status code",
	}, []string{"method", "route", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_call_duration_seconds",
		Help:      "Duration of calls to the key server and the queue service",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	auditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_write_failures_total",
		Help:      "Audit entries that could not be stored",
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, route string, code int, elapsed time.Duration) {
	requestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveUpstream records one call to an external dependency.
func ObserveUpstream(operation string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	upstreamDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// AuditFailed ...
func AuditFailed() {
	auditFailures.Inc()
}
