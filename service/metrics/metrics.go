package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal    *prometheus.CounterVec
	solanaRPCCallDuration  *prometheus.HistogramVec
	solanaRPCRateLimitHits *prometheus.CounterVec
	solanaRPCRetries       *prometheus.CounterVec

	// Endpoint Pool Metrics
	poolEndpointFailures *prometheus.CounterVec
	poolPassesTotal      *prometheus.CounterVec
	poolBackoffSleeps    *prometheus.CounterVec

	// Submission Pipeline Metrics
	submissionsTotal     *prometheus.CounterVec
	submissionDuration   *prometheus.HistogramVec
	blockhashRebuilds    *prometheus.CounterVec
	simulationFailures   *prometheus.CounterVec
	confirmationTimeouts *prometheus.CounterVec

	// Compensation Metrics
	refundsIssuedTotal *prometheus.CounterVec
	refundAmount       *prometheus.HistogramVec
	refundFailures     *prometheus.CounterVec

	// Workflow Metrics
	harvestWorkflowDuration        *prometheus.HistogramVec
	harvestWorkflowExecutionsTotal *prometheus.CounterVec
	harvestActivityDuration        *prometheus.HistogramVec

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_rate_limit_hits_total",
				Help: "Total number of Solana RPC rate limit hits (429 errors)",
			},
			[]string{"endpoint"},
		),
		solanaRPCRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_retries_total",
				Help: "Total number of Solana RPC retry attempts",
			},
			[]string{"method", "reason"},
		),

		// Endpoint Pool Metrics
		poolEndpointFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pool_endpoint_failures_total",
				Help: "Total number of per-endpoint operation failures",
			},
			[]string{"endpoint", "reason"},
		),
		poolPassesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pool_passes_total",
				Help: "Total number of full passes over the endpoint pool",
			},
			[]string{"status"},
		),
		poolBackoffSleeps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pool_backoff_sleeps_total",
				Help: "Total number of backoff sleeps between pool passes",
			},
			[]string{},
		),

		// Submission Pipeline Metrics
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "submissions_total",
				Help: "Total number of transaction submissions by operation and terminal status",
			},
			[]string{"operation", "status"},
		),
		submissionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "submission_duration_seconds",
				Help:    "End-to-end duration of transaction submissions in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation", "status"},
		),
		blockhashRebuilds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockhash_rebuilds_total",
				Help: "Total number of transactions rebuilt after a stale blockhash",
			},
			[]string{"operation"},
		),
		simulationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulation_failures_total",
				Help: "Total number of transactions rejected at simulation",
			},
			[]string{"operation"},
		),
		confirmationTimeouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "confirmation_timeouts_total",
				Help: "Total number of submissions that timed out awaiting confirmation",
			},
			[]string{"operation"},
		),

		// Compensation Metrics
		refundsIssuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refunds_issued_total",
				Help: "Total number of compensation refunds issued",
			},
			[]string{"operation"},
		),
		refundAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "refund_amount_lamports",
				Help:    "Lamports refunded per compensation transfer",
				Buckets: []float64{1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9},
			},
			[]string{"operation"},
		),
		refundFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refund_failures_total",
				Help: "Total number of compensation refunds that failed to land",
			},
			[]string{"operation"},
		),

		// Workflow Metrics
		harvestWorkflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvest_workflow_duration_seconds",
				Help:    "Duration of harvest workflow execution in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"owner", "status"},
		),
		harvestWorkflowExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_workflow_executions_total",
				Help: "Total number of harvest workflow executions",
			},
			[]string{"owner", "status"},
		),
		harvestActivityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvest_activity_duration_seconds",
				Help:    "Duration of harvest workflow activities in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"activity", "owner"},
		),

		// Database Metrics
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations",
			},
			[]string{"operation", "status"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.solanaRPCRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRPCRetry records a retry attempt.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	m.solanaRPCRetries.WithLabelValues(method, reason).Inc()
}

// Endpoint pool metric helpers

// RecordEndpointFailure records one failed operation against an endpoint.
func (m *Metrics) RecordEndpointFailure(endpoint, reason string) {
	m.poolEndpointFailures.WithLabelValues(endpoint, reason).Inc()
}

// RecordPoolPass records the outcome of a full pass over the pool.
func (m *Metrics) RecordPoolPass(status string) {
	m.poolPassesTotal.WithLabelValues(status).Inc()
}

// RecordBackoffSleep records one backoff sleep between pool passes.
func (m *Metrics) RecordBackoffSleep() {
	m.poolBackoffSleeps.WithLabelValues().Inc()
}

// Submission pipeline metric helpers

// RecordSubmission records a submission reaching a terminal status.
func (m *Metrics) RecordSubmission(operation, status string, duration float64) {
	m.submissionsTotal.WithLabelValues(operation, status).Inc()
	m.submissionDuration.WithLabelValues(operation, status).Observe(duration)
}

// RecordBlockhashRebuild records a rebuild after a stale blockhash.
func (m *Metrics) RecordBlockhashRebuild(operation string) {
	m.blockhashRebuilds.WithLabelValues(operation).Inc()
}

// RecordSimulationFailure records a transaction rejected at simulation.
func (m *Metrics) RecordSimulationFailure(operation string) {
	m.simulationFailures.WithLabelValues(operation).Inc()
}

// RecordConfirmationTimeout records a submission that never confirmed.
func (m *Metrics) RecordConfirmationTimeout(operation string) {
	m.confirmationTimeouts.WithLabelValues(operation).Inc()
}

// Compensation metric helpers

// RecordRefundIssued records a successful compensation refund.
func (m *Metrics) RecordRefundIssued(operation string, lamports uint64) {
	m.refundsIssuedTotal.WithLabelValues(operation).Inc()
	m.refundAmount.WithLabelValues(operation).Observe(float64(lamports))
}

// RecordRefundFailure records a compensation refund that failed.
func (m *Metrics) RecordRefundFailure(operation string) {
	m.refundFailures.WithLabelValues(operation).Inc()
}

// Workflow metric helpers

// RecordWorkflowDuration records harvest workflow execution duration.
func (m *Metrics) RecordWorkflowDuration(owner, status string, duration float64) {
	m.harvestWorkflowDuration.WithLabelValues(owner, status).Observe(duration)
	m.harvestWorkflowExecutionsTotal.WithLabelValues(owner, status).Inc()
}

// RecordActivityDuration records activity execution duration.
func (m *Metrics) RecordActivityDuration(activity, owner string, duration float64) {
	m.harvestActivityDuration.WithLabelValues(activity, owner).Observe(duration)
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}
