package cache

import (
	"sync"
	"time"

	"github.com/mirzaik-wcc/contractorlens/internal/clock"
)

// Cache is a keyed store whose entries expire.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Flush()
	Len() int
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is an in-memory Cache bounded by maxKeys. When full it drops expired
// entries first, then the entry closest to expiry.
type TTLCache[K comparable, V any] struct {
	clock   clock.Clock
	maxKeys int
	onEvict func()

	mu    sync.RWMutex
	items map[K]ttlEntry[V]
}

// NewTTLCache builds a cache; maxKeys <= 0 means unbounded and onEvict may be nil.
func NewTTLCache[K comparable, V any](clk clock.Clock, maxKeys int, onEvict func()) *TTLCache[K, V] {
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &TTLCache[K, V]{
		clock:   clk,
		maxKeys: maxKeys,
		onEvict: onEvict,
		items:   make(map[K]ttlEntry[V]),
	}
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}

	now := c.clock.Now()
	if now.Before(entry.expiresAt) {
		return entry.value, true
	}

	c.mu.Lock()
	// Another writer may have refreshed the key in between.
	if current, ok := c.items[key]; ok && !now.Before(current.expiresAt) {
		delete(c.items, key)
	}
	c.mu.Unlock()
	return zero, false
}

// Set stores value for ttl. A non-positive ttl stores nothing.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		return
	}
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxKeys > 0 && len(c.items) >= c.maxKeys {
		c.makeRoomLocked(now)
	}
	c.items[key] = ttlEntry[V]{value: value, expiresAt: now.Add(ttl)}
}

func (c *TTLCache[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *TTLCache[K, V]) Flush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items = make(map[K]ttlEntry[V])
	c.mu.Unlock()
}

// Len counts stored entries, including expired ones not yet purged.
func (c *TTLCache[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *TTLCache[K, V]) makeRoomLocked(now time.Time) {
	for key, entry := range c.items {
		if !now.Before(entry.expiresAt) {
			delete(c.items, key)
		}
	}
	if len(c.items) < c.maxKeys {
		return
	}

	var (
		victim    K
		victimExp time.Time
		found     bool
	)
	for key, entry := range c.items {
		if !found || entry.expiresAt.Before(victimExp) {
			victim, victimExp, found = key, entry.expiresAt, true
		}
	}
	if found {
		delete(c.items, victim)
		if c.onEvict != nil {
			c.onEvict()
		}
	}
}
