package sql

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusUtxoGet    prometheus.Counter
	prometheusUtxoPut    prometheus.Counter
	prometheusUtxoRemove prometheus.Counter
	prometheusUtxoCommit prometheus.Counter
	prometheusUtxoErrors *prometheus.CounterVec

	// only init the metrics once
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusUtxoGet = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Name:      "sql_utxo_get",
			Help:      "Number of utxo get calls done to sql",
		},
	)
	prometheusUtxoPut = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Name:      "sql_utxo_put",
			Help:      "Number of outputs inserted into sql",
		},
	)
	prometheusUtxoRemove = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Name:      "sql_utxo_remove",
			Help:      "Number of outputs removed from sql",
		},
	)
	prometheusUtxoCommit = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Name:      "sql_utxo_commit",
			Help:      "Number of batches committed to sql",
		},
	)
	prometheusUtxoErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "verdict",
			Name:      "sql_utxo_errors",
			Help:      "Number of utxo errors",
		},
		[]string{
			"function", // function raising the error
			"error",    // error returned
		},
	)
}
