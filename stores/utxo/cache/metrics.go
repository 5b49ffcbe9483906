package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	layerLocal  = "local"
	layerMaster = "master"
	layerStore  = "store"
)

var (
	prometheusUtxoCacheHits          *prometheus.CounterVec
	prometheusUtxoCacheMisses        *prometheus.CounterVec
	prometheusUtxoCacheEvictions     *prometheus.CounterVec
	prometheusUtxoCacheInvalidations prometheus.Counter
	prometheusUtxoCachePrefetched    prometheus.Counter
	prometheusUtxoCacheRetries       prometheus.Counter

	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusUtxoCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "utxo_cache",
			Name:      "hits",
			Help:      "Number of utxo lookups answered by each layer",
		},
		[]string{"layer"},
	)
	prometheusUtxoCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "utxo_cache",
			Name:      "misses",
			Help:      "Number of utxo lookups each layer could not answer",
		},
		[]string{"layer"},
	)
	prometheusUtxoCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "utxo_cache",
			Name:      "evictions",
			Help:      "Number of least recently used entries evicted",
		},
		[]string{"layer"},
	)
	prometheusUtxoCacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "utxo_cache",
			Name:      "invalidations",
			Help:      "Number of spent outputs removed from the master cache",
		},
	)
	prometheusUtxoCachePrefetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "utxo_cache",
			Name:      "prefetched",
			Help:      "Number of entries loaded into the master cache ahead of validation",
		},
	)
	prometheusUtxoCacheRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Subsystem: "utxo_cache",
			Name:      "store_retries",
			Help:      "Number of store lookups retried after a transient failure",
		},
	)
}
