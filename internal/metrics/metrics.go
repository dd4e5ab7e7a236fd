// Package metrics exposes Prometheus collectors for the watcher service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	checksTotal           *prometheus.CounterVec
	notificationsTotal    *prometheus.CounterVec
	deliveryFailuresTotal prometheus.Counter
	fetchDurationSeconds  *prometheus.HistogramVec
	httpRequestsTotal     *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		checksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formwatch_checks_total",
				Help: "Total number of check cycles, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formwatch_notifications_total",
				Help: "Total number of notifications sent, labeled by kind.",
			},
			[]string{"kind"},
		)

		deliveryFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "formwatch_delivery_failures_total",
				Help: "Total webhook delivery failures.",
			},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "formwatch_fetch_duration_seconds",
				Help:    "Histogram of form fetch latencies, labeled by status code.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"code"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCheck increments the check counter for the given outcome.
func ObserveCheck(outcome string) {
	if checksTotal == nil {
		return
	}
	checksTotal.WithLabelValues(outcome).Inc()
}

// ObserveNotification increments the notification counter for the kind.
func ObserveNotification(kind string) {
	if notificationsTotal == nil {
		return
	}
	notificationsTotal.WithLabelValues(kind).Inc()
}

// ObserveDeliveryFailure increments the delivery failure counter.
func ObserveDeliveryFailure() {
	if deliveryFailuresTotal == nil {
		return
	}
	deliveryFailuresTotal.Inc()
}

// ObserveFetch records the latency of one form fetch.
func ObserveFetch(code int, duration time.Duration) {
	if fetchDurationSeconds == nil {
		return
	}
	fetchDurationSeconds.WithLabelValues(strconv.Itoa(code)).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method string, code int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
