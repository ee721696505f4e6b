package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	PriceEstimates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_estimates_total",
			Help: "Price estimates computed, by service category and whether the input was complete",
		},
		[]string{"category", "complete"},
	)

	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking status transitions applied",
		},
		[]string{"from", "to"},
	)

	JobPaidSync = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_paid_sync_total",
			Help: "Outcome of the revenue transaction and invoice update performed when a job is paid",
		},
		[]string{"outcome"},
	)

	InvoicesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invoices_issued_total",
			Help: "Invoices issued from completed bookings",
		},
	)

	LoyaltyPoints = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_points_total",
			Help: "Loyalty points credited or reversed",
		},
		[]string{"type"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_events_published_total",
			Help: "Domain events published to the message broker",
		},
		[]string{"routing_key", "result"},
	)
)
