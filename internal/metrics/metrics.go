package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CapturesTotal counts capture attempts by modality and status
	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_captures_total",
			Help: "Total number of capture attempts",
		},
		[]string{"modality", "status"},
	)

	// CaptureDuration tracks end-to-end capture time per modality
	CaptureDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_capture_duration_seconds",
			Help:    "Capture duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"modality"},
	)

	// EnrollmentsTotal counts enrollment submissions by modality and status
	EnrollmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_enrollments_total",
			Help: "Total number of enrollment submissions",
		},
		[]string{"modality", "status"},
	)

	// IdentificationsTotal counts identification searches by modality and outcome
	IdentificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_identifications_total",
			Help: "Total number of identification searches",
		},
		[]string{"modality", "outcome"},
	)

	// SubmissionDuration tracks matching-service round-trip time
	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_submission_duration_seconds",
			Help:    "Matching-service submission duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "modality"},
	)

	// DeviceBusyTotal counts capture attempts rejected because the device was held
	DeviceBusyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_device_busy_total",
			Help: "Total number of capture attempts rejected while the device was busy",
		},
		[]string{"modality"},
	)

	// ActiveFlows tracks in-progress capture flows per modality
	ActiveFlows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_active_flows",
			Help: "Number of capture flows currently in progress",
		},
		[]string{"modality"},
	)

	// VisitsTotal counts visitor check-ins and check-outs
	VisitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_visits_total",
			Help: "Total number of visitor log events",
		},
		[]string{"event"},
	)

	// ErrorsTotal counts errors by component and category
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "category"},
	)
)
