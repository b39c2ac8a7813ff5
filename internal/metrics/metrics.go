// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecorewards_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecorewards_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "path"},
	)

	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecorewards_orders_placed_total",
			Help: "Orders placed, by delivery method",
		},
		[]string{"delivery_method"},
	)

	PointsMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecorewards_points_total",
			Help: "Points credited or debited, by direction and activity type",
		},
		[]string{"direction", "type"},
	)

	DebitsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ecorewards_debits_rejected_total",
			Help: "Debits refused for insufficient points",
		},
	)

	Refunds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ecorewards_order_refunds_total",
			Help: "Order debits credited back after a failed insert",
		},
	)

	// MirrorJobs counts external ledger jobs by kind and outcome
	// (enqueued, enqueue_failed, done, retried, buried).
	MirrorJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecorewards_mirror_jobs_total",
			Help: "External ledger mirror jobs, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(OrdersPlaced)
	prometheus.MustRegister(PointsMoved)
	prometheus.MustRegister(DebitsRejected)
	prometheus.MustRegister(Refunds)
	prometheus.MustRegister(MirrorJobs)
}
