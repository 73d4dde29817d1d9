package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RepositoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_calls_total",
			Help: "Total number of repository method calls",
		},
		[]string{"method", "status"},
	)

	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_duration_seconds",
			Help:    "Duration of repository method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// VendorCalls counts outbound calls to the VTU vendor, payment gateway
	// and WhatsApp.
	VendorCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_calls_total",
			Help: "Total number of outbound vendor API calls",
		},
		[]string{"vendor", "operation", "status"},
	)

	VendorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vendor_call_duration_seconds",
			Help:    "Duration of outbound vendor API calls in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"vendor", "operation"},
	)

	NotificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Outbound user notifications that could not be delivered",
		},
		[]string{"kind"},
	)

	ParsedCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parsed_commands_total",
			Help: "Inbound messages by parsed command type and confidence",
		},
		[]string{"type", "confidence"},
	)

	LedgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Wallet ledger operations by kind and outcome",
		},
		[]string{"operation", "status"},
	)

	registerOnce sync.Once
)

func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RepositoryCalls,
			RepositoryDuration,
			HTTPRequests,
			HTTPDuration,
			VendorCalls,
			VendorDuration,
			NotificationFailures,
			ParsedCommands,
			LedgerOperations,
		)
	})
}

// ObserveVendorCall records one outbound vendor call started at start.
func ObserveVendorCall(vendor, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	VendorCalls.WithLabelValues(vendor, operation, status).Inc()
	VendorDuration.WithLabelValues(vendor, operation).Observe(time.Since(start).Seconds())
}
