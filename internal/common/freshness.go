// Package common provides shared utilities for brokeclub
package common

import "time"

// Freshness windows for cached market data
const (
	FreshnessQuote        = 15 * time.Minute    // per-asset quote served without a vendor call
	FreshnessStaleQuote   = 30 * 24 * time.Hour // oldest quote still returned as a stale fallback
	FreshnessSymbolSearch = 12 * time.Hour      // vendor symbol search results
)

// IsWithin returns true if updated is no older than maxAge as of now.
// The boundary is inclusive (asOf >= now-maxAge).
func IsWithin(updated, now time.Time, maxAge time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return !updated.Before(now.Add(-maxAge))
}
