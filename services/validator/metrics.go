package validator

import (
	"sync"

	"github.com/bsv-blockchain/verdict/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusInputsVerified      prometheus.Counter
	prometheusScriptFailures      prometheus.Counter
	prometheusUnresolvedInputs    prometheus.Counter
	prometheusInvalidTransactions *prometheus.CounterVec
	prometheusTransactionValidate prometheus.Histogram
	prometheusTransactionScripts  prometheus.Histogram
	prometheusQueuedOutputLookups prometheus.Counter
	prometheusMetricsInitOnce     sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusInputsVerified = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "validator",
			Name:      "inputs_verified",
			Help:      "Number of inputs whose scripts were evaluated",
		},
	)

	prometheusScriptFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "validator",
			Name:      "script_failures",
			Help:      "Number of inputs rejected by the script interpreter",
		},
	)

	prometheusUnresolvedInputs = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "validator",
			Name:      "unresolved_inputs",
			Help:      "Number of inputs spending an output that could not be found",
		},
	)

	prometheusInvalidTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "validator",
			Name:      "invalid_transactions",
			Help:      "Number of transactions found invalid, by status",
		},
		[]string{"status"},
	)

	prometheusTransactionValidate = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "verdict",
			Subsystem: "validator",
			Name:      "transactions_validate",
			Help:      "Histogram of transaction expenditure validation",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusTransactionScripts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "verdict",
			Subsystem: "validator",
			Name:      "transactions_validate_scripts",
			Help:      "Histogram of transaction script validation",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusQueuedOutputLookups = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "validator",
			Name:      "queued_output_lookups",
			Help:      "Number of inputs resolved from transactions of the same block",
		},
	)
}
