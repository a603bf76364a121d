// Package cache provides time-bounded memoization of aggregation results.
package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/outravel/go-dealfinder/models"
)

// DefaultTTL is how long a cached result stays valid.
const DefaultTTL = time.Hour

// Results memoizes ranked product lists by normalized query. Entries expire
// after the configured TTL and the LRU bound keeps a long-running process
// from growing without limit. Entries are immutable once stored; concurrent
// readers and the single writer per key need no additional locking.
type Results struct {
	lru *expirable.LRU[string, []models.RankedProduct]
}

// NewResults builds a cache holding up to size entries for ttl each.
// A size of 0 removes the capacity bound.
func NewResults(size int, ttl time.Duration) *Results {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Results{
		lru: expirable.NewLRU[string, []models.RankedProduct](size, nil, ttl),
	}
}

// Key normalizes a raw query into its cache key.
func Key(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Get returns the cached products for key, or ok=false when the entry is
// absent or past its TTL.
func (r *Results) Get(key string) ([]models.RankedProduct, bool) {
	return r.lru.Get(key)
}

// Put stores products under key. Last writer wins.
func (r *Results) Put(key string, products []models.RankedProduct) {
	r.lru.Add(key, products)
}

// Len reports the number of live entries.
func (r *Results) Len() int {
	return r.lru.Len()
}
