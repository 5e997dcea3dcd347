package models

import "time"

// SystemMetrics is the lightweight runtime snapshot exposed to admins.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	LoginsTotal              uint64    `json:"logins_total"`
	InvoicesCreatedTotal     uint64    `json:"invoices_created_total"`
	EmailsRelayedTotal       uint64    `json:"emails_relayed_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
