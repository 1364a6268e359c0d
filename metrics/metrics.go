package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var namespace = "alpaca"
var subsystem = "framestore"

const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

var (
	// PoolAcquisitionsTotal counts frame columns handed out by pools,
	// partitioned by column shape and whether a pooled instance was reused
	PoolAcquisitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "framecolumn_pool_acquisitions_total",
		Help:      "Number of frame columns acquired from pools partitioned by shape and result",
	}, []string{"shape", "result"})

	// BytesCopiedTotal stores the number of bytes moved descriptor to descriptor
	BytesCopiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "framecolumn_bytes_copied_total",
		Help:      "Bytes copied between column files partitioned by shape",
	}, []string{"shape"})

	// NullRowsTotal stores the number of rows padded with nulls
	NullRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "framecolumn_null_rows_total",
		Help:      "Rows padded with nulls partitioned by shape",
	}, []string{"shape"})

	// IndexValuesTotal stores the number of row ids added to symbol indexes
	IndexValuesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "framecolumn_index_values_total",
		Help:      "Row ids added to symbol indexes",
	})

	// PartitionDiskUsage stores the bytes actually allocated by the last inspected partition
	PartitionDiskUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "partition_disk_usage_bytes",
		Help:      "Allocated bytes of the last inspected partition",
	})
)
