package common

import "github.com/prometheus/client_golang/prometheus"

const (
	HTTPRequestTotal           = "http_requests_total"
	HTTPRequestDurationSeconds = "http_request_duration_seconds"

	RaffleAllocationsTotal    = "raffle_allocations_total"
	RaffleEntriesAllocated    = "raffle_entries_allocated_total"
	RaffleClosuresTotal       = "raffle_closures_total"
	RaffleDrawsTotal          = "raffle_draws_total"
	RaffleDrawDurationSeconds = "raffle_draw_duration_seconds"
	IntegrityViolationsTotal  = "integrity_violations_total"
	CronJobDurationSeconds    = "cron_job_duration_seconds"
)

var (
	PromCounters = map[string]*prometheus.CounterVec{
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestTotal,
			Help: "Count of all HTTP requests",
		}, []string{"path", "code"}),
		RaffleAllocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RaffleAllocationsTotal,
			Help: "Count of all allocation requests by their result code",
		}, []string{"code"}),
		RaffleEntriesAllocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RaffleEntriesAllocated,
			Help: "Count of all allocated entries",
		}, []string{}),
		RaffleClosuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RaffleClosuresTotal,
			Help: "Count of all raffle closures by reason",
		}, []string{"reason"}),
		RaffleDrawsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: RaffleDrawsTotal,
			Help: "Count of all executed draws by result",
		}, []string{"result"}),
		IntegrityViolationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: IntegrityViolationsTotal,
			Help: "Count of all detected integrity violations",
		}, []string{"kind"}),
	}

	PromHistograms = map[string]*prometheus.HistogramVec{
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: HTTPRequestDurationSeconds,
			Help: "Duration of all HTTP requests",
		}, []string{"path", "code"}),
		RaffleDrawDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: RaffleDrawDurationSeconds,
			Help: "Duration of the draw engine",
		}, []string{"formula"}),
		CronJobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: CronJobDurationSeconds,
			Help: "Duration of cron jobs",
		}, []string{"job"}),
	}
)

const (
	IntegrityStuckDrawing  = "stuck_drawing"
	IntegrityVerifyFailure = "verify_failure"
)
