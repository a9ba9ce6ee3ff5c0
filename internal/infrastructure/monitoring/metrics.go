package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type ScheduleMetrics struct {
	MutationsTotal            *prometheus.CounterVec
	ConcurrencyConflictsTotal prometheus.Counter
	LateFeeAssessmentsTotal   prometheus.Counter
	LateFeeAmountTotal        prometheus.Counter
	OverdueSweepsTotal        *prometheus.CounterVec
	LoansRefreshedOverdue     prometheus.Counter
}

var (
	HTTP = HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repayment_engine_http_requests_total",
				Help: "Total number of HTTP requests received.",
			},
			[]string{"method", "path", "code"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "repayment_engine_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "code"},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "repayment_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Schedule = ScheduleMetrics{
		MutationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repayment_engine_schedule_mutations_total",
				Help: "Schedule operations by type and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		ConcurrencyConflictsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "repayment_engine_concurrency_conflicts_total",
				Help: "Saves rejected because the stored revision had moved on.",
			},
		),
		LateFeeAssessmentsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "repayment_engine_late_fee_assessments_total",
				Help: "Installments that accrued a late fee when assessed.",
			},
		),
		LateFeeAmountTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "repayment_engine_late_fee_amount_total",
				Help: "Sum of assessed late fees in major currency units.",
			},
		),
		OverdueSweepsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repayment_engine_overdue_sweeps_total",
				Help: "Overdue sweep runs by status.",
			},
			[]string{"status"},
		),
		LoansRefreshedOverdue: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "repayment_engine_loans_refreshed_overdue_total",
				Help: "Loans whose overdue state changed during a sweep.",
			},
		),
	}
)

func RecordHTTPRequest(method, path, code string, duration time.Duration) {
	HTTP.RequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordMutation(operation, outcome string) {
	Schedule.MutationsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordConcurrencyConflict() {
	Schedule.ConcurrencyConflictsTotal.Inc()
}

func RecordLateFees(count int, amount float64) {
	Schedule.LateFeeAssessmentsTotal.Add(float64(count))
	Schedule.LateFeeAmountTotal.Add(amount)
}

func RecordOverdueSweep(status string, refreshed int) {
	Schedule.OverdueSweepsTotal.WithLabelValues(status).Inc()
	Schedule.LoansRefreshedOverdue.Add(float64(refreshed))
}
