package models

import "time"

// SystemMetrics is a lightweight aggregate of runtime instrumentation for
// the stats endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	GenerationsTotal         uint64    `json:"generations_total"`
	GenerationsSolved        uint64    `json:"generations_solved"`
	GenerationsInfeasible    uint64    `json:"generations_infeasible"`
	GenerationsTimedOut      uint64    `json:"generations_timed_out"`
	AverageGenerationMs      float64   `json:"average_generation_ms"`
	ValidationsTotal         uint64    `json:"validations_total"`
	ValidationFindings       uint64    `json:"validation_findings"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
