// Package cache is a small keyed read-through cache for aggregation views.
// Entries are grouped by school so a single write can drop every cached view
// of that school before the write returns.
package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lcb-colegios/hogwarts-points/internal/metrics"
)

const DefaultTTL = 60 * time.Second

type entry struct {
	val     any
	savedAt time.Time
}

type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	bySchool map[uuid.UUID]map[string]entry
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:      ttl,
		now:      time.Now,
		bySchool: make(map[uuid.UUID]map[string]entry),
	}
}

func (c *Cache) Get(schoolID uuid.UUID, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.bySchool[schoolID][key]
	if !ok || c.now().Sub(e.savedAt) > c.ttl {
		if ok {
			delete(c.bySchool[schoolID], key)
		}
		metrics.CacheMisses.Inc()
		return nil, false
	}
	metrics.CacheHits.Inc()
	return e.val, true
}

func (c *Cache) Set(schoolID uuid.UUID, key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.bySchool[schoolID]
	if !ok {
		m = make(map[string]entry)
		c.bySchool[schoolID] = m
	}
	m[key] = entry{val: val, savedAt: c.now()}
}

// Invalidate drops every cached view of one school. Wired as the ledger's
// post-commit hook; runs synchronously before the write call returns.
func (c *Cache) Invalidate(schoolID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bySchool, schoolID)
}
