// Package answercache memoizes generated answers keyed by normalized query
// and result count.
package answercache

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/mitate/pkg/utils"
)

// Cache stores generated answers with hit/miss accounting. Entries never
// expire; call Clear to reset. Concurrent GetOrGenerate calls for the same
// key may each invoke the generator, last write wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]string
	hits    uint64
	misses  uint64
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

func New() *Cache {
	return &Cache{entries: make(map[string]string)}
}

// Key builds the cache key from a query and result count. The query is
// lowercased with whitespace collapsed, so trivially different phrasings of
// the same query share an entry.
func Key(query string, topK int) string {
	return fmt.Sprintf("%s::%d", utils.NormalizeQuery(query), topK)
}

// Get returns the cached answer for key and records a hit or miss.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	answer, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return answer, ok
}

// Set stores the answer for key.
func (c *Cache) Set(key, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = answer
}

// GetOrGenerate returns the cached answer for key, or invokes generate and
// caches its result. The second return reports whether the answer came from
// the cache. Generator failures are not cached.
func (c *Cache) GetOrGenerate(ctx context.Context, key string, generate func(ctx context.Context) (string, error)) (string, bool, error) {
	if answer, ok := c.Get(key); ok {
		return answer, true, nil
	}
	answer, err := generate(ctx)
	if err != nil {
		return "", false, err
	}
	c.Set(key, answer)
	return answer, false, nil
}

// Stats returns a snapshot of the current counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Clear drops all entries and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	c.hits = 0
	c.misses = 0
}
