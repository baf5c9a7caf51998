package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	adminRequestsTotal  *prometheus.CounterVec
	adminLatencySeconds *prometheus.HistogramVec
	adminErrorsTotal    *prometheus.CounterVec

	jobsProcessedTotal     *prometheus.CounterVec
	jobDurationSeconds     *prometheus.HistogramVec
	notificationsDelivered *prometheus.CounterVec
	notificationStreams    prometheus.Gauge
	gradesRecordedTotal    *prometheus.CounterVec
	examAttemptsTotal      *prometheus.CounterVec
	courseGradeRecomputes  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		jobsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Background job executions by outcome.",
		}, []string{"job", "outcome"})

		jobDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Execution time of background jobs.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"job"})

		notificationsDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Per-recipient notification deliveries by channel and outcome.",
		}, []string{"channel", "outcome"})

		notificationStreams = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_streams_active",
			Help: "Open websocket notification streams.",
		})

		gradesRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grades_recorded_total",
			Help: "Grade versions written by action.",
		}, []string{"action"})

		examAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "module_exam_attempts_total",
			Help: "Module exam attempts by kind and result.",
		}, []string{"kind", "result"})

		courseGradeRecomputes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "course_grade_recomputes_total",
			Help: "Course grade recompute requests by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			adminRequestsTotal, adminLatencySeconds, adminErrorsTotal,
			jobsProcessedTotal, jobDurationSeconds,
			notificationsDelivered, notificationStreams,
			gradesRecordedTotal, examAttemptsTotal, courseGradeRecomputes,
		)
	})
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// JobsProcessed counts job executions labelled by job and outcome.
func JobsProcessed() *prometheus.CounterVec {
	RegisterMetrics()
	return jobsProcessedTotal
}

// JobDuration observes job execution time.
func JobDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return jobDurationSeconds
}

// NotificationsDelivered counts per-recipient deliveries.
func NotificationsDelivered() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsDelivered
}

// NotificationStreams tracks open websocket streams.
func NotificationStreams() prometheus.Gauge {
	RegisterMetrics()
	return notificationStreams
}

// GradesRecorded counts written grade versions.
func GradesRecorded() *prometheus.CounterVec {
	RegisterMetrics()
	return gradesRecordedTotal
}

// ExamAttempts counts module exam attempts.
func ExamAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return examAttemptsTotal
}

// CourseGradeRecomputes counts recompute requests and executions.
func CourseGradeRecomputes() *prometheus.CounterVec {
	RegisterMetrics()
	return courseGradeRecomputes
}
