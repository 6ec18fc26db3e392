package parceline

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopmesh/parceline-bridge/pkg/shipper"
)

// DefaultQuoteTTL is how long a cached quote is served.
const DefaultQuoteTTL = 5 * time.Minute

// DefaultQuoteCacheSize bounds the cache so a long-running bridge with
// high route cardinality cannot grow it without limit.
const DefaultQuoteCacheSize = 1024

// quoteCache is a bounded TTL cache of quote responses.
type quoteCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	now     func() time.Time
	entries map[string]quoteEntry
}

type quoteEntry struct {
	resp      *shipper.QuoteResponse
	expiresAt time.Time
}

func newQuoteCache(ttl time.Duration, max int, now func() time.Time) *quoteCache {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	if max <= 0 {
		max = DefaultQuoteCacheSize
	}
	if now == nil {
		now = time.Now
	}
	return &quoteCache{
		ttl:     ttl,
		max:     max,
		now:     now,
		entries: make(map[string]quoteEntry),
	}
}

// get returns the cached response for key, dropping it if expired.
func (c *quoteCache) get(key string) (*shipper.QuoteResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.resp, true
}

// put stores resp under key. When the cache is full, the entry closest
// to expiry is evicted first.
func (c *quoteCache) put(key string, resp *shipper.QuoteResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		c.evictOldest()
	}
	c.entries[key] = quoteEntry{
		resp:      resp,
		expiresAt: c.now().Add(c.ttl),
	}
}

// evictOldest removes the entry with the earliest expiry. Caller holds the lock.
func (c *quoteCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.expiresAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *quoteCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// quoteKey derives the cache key from the request fields that determine
// a quote's price: route codes, total weight, parcel count and service
// level. It is a pure function of those fields.
func quoteKey(req *shipper.QuoteRequest) string {
	var totalWeight float64
	for _, p := range req.Packages {
		totalWeight += weightKG(p)
	}

	parts := []string{
		strings.ToUpper(routeCode(req.Origin)),
		strings.ToUpper(routeCode(req.Destination)),
		fmt.Sprintf("%.3f", totalWeight),
		fmt.Sprintf("%d", len(req.Packages)),
		strings.ToLower(string(req.ServiceLevel)),
	}
	return strings.Join(parts, "|")
}

// routeCode picks the most specific routing identifier available.
func routeCode(a shipper.Address) string {
	if a.CityCode != "" {
		return a.CityCode
	}
	if a.PostalCode != "" {
		return strings.ReplaceAll(a.PostalCode, " ", "")
	}
	return a.City
}
