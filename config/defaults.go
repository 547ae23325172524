package config

import "time"

// Default runtime limits and analysis thresholds for the sheetlens server.
// Runtime values are referenced by internal/runtime; analysis values by
// internal/analysis.

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxOpenDatasets       = 4

	// Payload and row limits
	DefaultMaxPayloadBytes = 4 << 20 // 4MiB
	DefaultMaxRowsPerLoad  = 100_000
	DefaultPageSize        = 10
)

const (
	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second

	// Dataset cache
	DefaultDatasetIdleTTL       = 30 * time.Minute
	DefaultDatasetCleanupPeriod = time.Minute
)

// Analysis heuristics.
const (
	// A categorical column becomes a filter facet when its distinct count is in [Min, Max].
	FacetMinValues = 2
	FacetMaxValues = 50

	// A categorical column is charted when its distinct count is in (Min, Max].
	ChartMinValues   = 1
	ChartMaxValues   = 100
	ChartMaxEntries  = 15
	ChartMaxSpecs    = 6
	EmptyValueLabel  = "(Vacío)"
	ProjectionMinCol = 3
)
