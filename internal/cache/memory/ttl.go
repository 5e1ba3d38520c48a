package memory

import (
	"container/list"
	"sync"
	"time"
)

const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 100

	// sweepEvery triggers a full expiry sweep when the size after an insert
	// is a multiple of it.
	sweepEvery = 10
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// TTLCache is a threadsafe key/value store with per-entry expiry.
// Capacity overflow evicts the oldest inserted key (FIFO, not LRU).
type TTLCache[K comparable, V any] struct {
	mu         sync.Mutex
	ll         *list.List // front = oldest insertion
	items      map[K]*list.Element
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// Option customizes a TTLCache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewTTLCache[K comparable, V any](maxEntries int, ttl time.Duration, opts ...Option) *TTLCache[K, V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTLCache[K, V]{
		ll:         list.New(),
		items:      make(map[K]*list.Element),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        o.now,
	}
}

// Set stores value under key with the default TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key; ttl <= 0 means the default TTL.
// Overwriting a key keeps its original insertion position.
func (c *TTLCache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	if c == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if ele, ok := c.items[key]; ok {
		ent := ele.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
	} else {
		ele := c.ll.PushBack(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
		c.items[key] = ele
	}

	if c.ll.Len()%sweepEvery == 0 {
		c.sweepLocked()
	}
	for c.ll.Len() > c.maxEntries {
		c.removeElement(c.ll.Front())
	}
}

// Get returns the value for key. Expired entries are evicted and reported absent.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.liveLocked(key)
	if !ok {
		return zero, false
	}
	return ent.value, true
}

// Has reports whether key holds an unexpired entry, evicting it when expired.
func (c *TTLCache[K, V]) Has(key K) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.liveLocked(key)
	return ok
}

func (c *TTLCache[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.items[key]; ok {
		c.removeElement(ele)
	}
}

func (c *TTLCache[K, V]) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll = list.New()
	c.items = make(map[K]*list.Element)
}

// Len counts stored entries, including expired ones not yet evicted.
func (c *TTLCache[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Keys lists stored keys in insertion order.
func (c *TTLCache[K, V]) Keys() []K {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]K, 0, c.ll.Len())
	for ele := c.ll.Front(); ele != nil; ele = ele.Next() {
		keys = append(keys, ele.Value.(*entry[K, V]).key)
	}
	return keys
}

// Sweep drops every expired entry.
func (c *TTLCache[K, V]) Sweep() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()
}

func (c *TTLCache[K, V]) liveLocked(key K) (*entry[K, V], bool) {
	ele, ok := c.items[key]
	if !ok {
		return nil, false
	}
	ent := ele.Value.(*entry[K, V])
	if c.now().After(ent.expiresAt) {
		c.removeElement(ele)
		return nil, false
	}
	return ent, true
}

func (c *TTLCache[K, V]) sweepLocked() {
	now := c.now()
	for ele := c.ll.Front(); ele != nil; {
		next := ele.Next()
		if now.After(ele.Value.(*entry[K, V]).expiresAt) {
			c.removeElement(ele)
		}
		ele = next
	}
}

func (c *TTLCache[K, V]) removeElement(ele *list.Element) {
	if ele == nil {
		return
	}
	c.ll.Remove(ele)
	delete(c.items, ele.Value.(*entry[K, V]).key)
}
