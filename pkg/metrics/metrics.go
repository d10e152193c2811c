// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MemoryCacheLookups counts tier-1 lookups by result (hit, miss).
	MemoryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_cache_lookups_total",
			Help: "Tier-1 memory cache lookups",
		},
		[]string{"result"},
	)

	// MemoryLegacyMigrated counts legacy durable records normalized on read.
	MemoryLegacyMigrated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memory_legacy_records_migrated_total",
			Help: "Legacy-shaped durable records migrated into tier 1",
		},
	)

	// MemorySweep counts items removed by the retention sweep.
	MemorySweep = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_sweep_removed_total",
			Help: "Items removed by the memory sweep",
		},
		[]string{"tier"},
	)

	// MemoryStoreErrors counts durable store failures by operation.
	MemoryStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_store_errors_total",
			Help: "Durable memory store failures",
		},
		[]string{"op"},
	)

	// ExtractionResults counts order extraction outcomes by status.
	ExtractionResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_extraction_results_total",
			Help: "Order extraction results by status",
		},
		[]string{"status"},
	)

	// OrdersCreated counts orders placed from conversations.
	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders created from confirmed conversations",
		},
	)

	// LLMDuration tracks language-model request duration.
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Language model request duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"provider", "status"},
	)

	// DuplicateMessages counts inbound messages dropped by the dedup guard.
	DuplicateMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_duplicate_messages_total",
			Help: "Inbound messages suppressed as duplicates",
		},
	)
)
