package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "roomledger_"

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	paymentsMarked   *prometheus.CounterVec
	paymentsRejected *prometheus.CounterVec
	markPaidLatency  *prometheus.HistogramVec
	arrearsScans     *prometheus.CounterVec
	arrearsLatency   prometheus.Histogram
	arrearsRooms     *prometheus.GaugeVec
	legacyPayments   *prometheus.GaugeVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
)

// RegisterMetrics registers the collectors with the default registry. It is
// safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		paymentsMarked = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payments_marked_total",
				Help: "Settlements recorded by payment method",
			},
			[]string{"method"},
		)
		paymentsRejected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payments_rejected_total",
				Help: "Mark-paid requests rejected by reason",
			},
			[]string{"reason"},
		)
		markPaidLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "mark_paid_latency_seconds",
				Help:    "Mark-paid latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		arrearsScans = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "arrears_scans_total",
				Help: "Arrears scans by result",
			},
			[]string{"result"},
		)
		arrearsLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "arrears_scan_latency_seconds",
				Help:    "Arrears scan latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		arrearsRooms = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "arrears_rooms",
				Help: "Rooms with an unpaid non-zero charge per building and month",
			},
			[]string{"building", "month"},
		)
		legacyPayments = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "legacy_payment_records",
				Help: "Payment records still stored only under the legacy key",
			},
			[]string{"building"},
		)
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by route and status",
			},
			[]string{"route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		)

		prometheus.MustRegister(
			paymentsMarked,
			paymentsRejected,
			markPaidLatency,
			arrearsScans,
			arrearsLatency,
			arrearsRooms,
			legacyPayments,
			httpRequests,
			httpLatency,
		)
	})
}

func ObservePaymentMarked(method string, elapsed time.Duration) {
	RegisterMetrics()
	paymentsMarked.WithLabelValues(method).Inc()
	markPaidLatency.WithLabelValues(ResultSuccess).Observe(elapsed.Seconds())
}

func ObservePaymentRejected(reason string, elapsed time.Duration) {
	RegisterMetrics()
	paymentsRejected.WithLabelValues(reason).Inc()
	markPaidLatency.WithLabelValues(ResultError).Observe(elapsed.Seconds())
}

func ObserveArrearsScan(err error, elapsed time.Duration) {
	RegisterMetrics()
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	arrearsScans.WithLabelValues(result).Inc()
	arrearsLatency.Observe(elapsed.Seconds())
}

// SetArrearsRooms replaces the per-month gauge values of one building.
func SetArrearsRooms(building string, counts map[string]int) {
	RegisterMetrics()
	arrearsRooms.DeletePartialMatch(prometheus.Labels{"building": building})
	for month, n := range counts {
		arrearsRooms.WithLabelValues(building, month).Set(float64(n))
	}
}

func SetLegacyPayments(building string, n int) {
	RegisterMetrics()
	legacyPayments.WithLabelValues(building).Set(float64(n))
}

func ObserveHTTPRequest(route, status string, elapsed time.Duration) {
	RegisterMetrics()
	httpRequests.WithLabelValues(route, status).Inc()
	httpLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}
