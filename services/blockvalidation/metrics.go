// Package blockvalidation validates whole blocks: header, merkle root, coinbase
// and the expenditure of every transaction, spread over a pool of workers. It
// also applies valid blocks to the utxo store.
package blockvalidation

import (
	"sync"

	"github.com/bsv-blockchain/verdict/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusBlockValidationValidateBlock prometheus.Histogram
	prometheusBlockValidationProcessBlock  prometheus.Histogram
	prometheusBlockValidationInvalidBlocks *prometheus.CounterVec
	prometheusBlockValidationTransactions  prometheus.Counter
	prometheusBlockValidationChunks        prometheus.Histogram
	prometheusBlockValidationAborts        prometheus.Counter

	// expiring cache metrics
	prometheusBlockValidationKnownBlocksCache prometheus.Gauge
	prometheusBlockValidationPendingBlocks    prometheus.Gauge
)

var (
	prometheusMetricsInitOnce sync.Once
)

// initPrometheusMetrics registers the metrics once, however many validators
// are created.
func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBlockValidationValidateBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "verdict",
			Subsystem: "blockvalidation",
			Name:      "validate_block",
			Help:      "Histogram of calls to ValidateBlock",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusBlockValidationProcessBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "verdict",
			Subsystem: "blockvalidation",
			Name:      "process_block",
			Help:      "Histogram of validating and applying a block to the utxo store",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusBlockValidationInvalidBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "blockvalidation",
			Name:      "invalid_blocks",
			Help:      "Number of blocks found invalid, by the check that failed",
		},
		[]string{"reason"},
	)

	prometheusBlockValidationTransactions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "blockvalidation",
			Name:      "transactions",
			Help:      "Number of transactions in validated blocks",
		},
	)

	prometheusBlockValidationChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "verdict",
			Subsystem: "blockvalidation",
			Name:      "chunks",
			Help:      "Histogram of the number of chunks a block's transactions were split into",
			Buckets:   prometheus.LinearBuckets(1, 1, 32),
		},
	)

	prometheusBlockValidationAborts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "blockvalidation",
			Name:      "aborts",
			Help:      "Number of validation batches aborted before completion",
		},
	)

	prometheusBlockValidationKnownBlocksCache = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "verdict",
			Subsystem: "blockvalidation",
			Name:      "known_blocks_cache",
			Help:      "Number of recently processed blocks held in the known blocks cache",
		},
	)

	prometheusBlockValidationPendingBlocks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "verdict",
			Subsystem: "blockvalidation",
			Name:      "pending_blocks",
			Help:      "Number of blocks waiting in the pending blocks store",
		},
	)
}
