package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksScanned tracks heights checked for existence per chain
	BlocksScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockcache_blocks_scanned_total",
			Help: "Total number of heights checked for existence",
		},
		[]string{"chain"},
	)

	// BlocksMissing tracks heights found absent during scans
	BlocksMissing = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockcache_blocks_missing_total",
			Help: "Total number of heights found missing",
		},
		[]string{"chain"},
	)

	// BlocksStored tracks cache entries written, per source
	BlocksStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockcache_blocks_stored_total",
			Help: "Total number of cache entries written",
		},
		[]string{"chain", "source"},
	)

	// FetchErrors tracks per-height failures, per source
	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockcache_fetch_errors_total",
			Help: "Total number of per-height fetch failures",
		},
		[]string{"chain", "source"},
	)

	// RPCBatches tracks batch round trips against the live node
	RPCBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blockcache_rpc_batches_total",
			Help: "Total number of batched RPC round trips",
		},
		[]string{"chain", "outcome"},
	)

	// LocalTip tracks the highest height present in the local cache
	LocalTip = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blockcache_local_tip_height",
			Help: "Highest block height present in the local cache",
		},
		[]string{"chain"},
	)

	// ChainTip tracks the live node's reported tip height
	ChainTip = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blockcache_chain_tip_height",
			Help: "Tip height reported by the live node",
		},
		[]string{"chain"},
	)
)
