// Package cache provides the short-lived result cache that sits in
// front of the trend, price and market-summary computations. Entries
// expire by TTL only: a new price observation never evicts a live
// entry. Staleness inside the TTL window is an accepted tradeoff for
// query cost.
package cache

import (
	"fmt"
	"time"
)

// Store is the injected key-value cache the engines compute through.
// Implementations must treat a missing or expired key as (false, nil).
type Store interface {
	// Get unmarshals the cached value for key into target. Returns
	// false when the key is absent or expired.
	Get(key string, target interface{}) (bool, error)
	// Put stores value under key for ttl. A ttl of zero never expires.
	Put(key string, value interface{}, ttl time.Duration) error
	// Remove deletes a single entry.
	Remove(key string) error
	// Clear drops every entry.
	Clear() error
}

// BuildKey creates semantic cache keys from parts.
func BuildKey(parts ...string) string {
	key := ""
	for i, part := range parts {
		if i > 0 {
			key += "|"
		}
		key += part
	}
	return key
}

// TrendKey caches trend snapshots per commodity+region.
func TrendKey(commodity, region string) string {
	return BuildKey("trend", commodity, region)
}

// PriceKey caches price predictions per commodity, grade, quantity
// bucket and region. Bucketing keeps nearby quantities on one entry.
func PriceKey(commodity, grade string, quantityBucket int, region string) string {
	return BuildKey("price", commodity, grade, fmt.Sprintf("q%d", quantityBucket), region)
}

// SummaryKey caches the market-wide summary per region.
func SummaryKey(region string) string {
	return BuildKey("summary", region)
}
