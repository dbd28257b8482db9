// Package memory provides the in-process verification cache: a sharded
// TTL+LRU structure memoizing recent match decisions by query fingerprint.
package memory

import (
	"container/list"
	"hash/fnv"
	"sync"
	"time"

	"github.com/mvfy/verify/internal/domain"
)

const defaultShardCount = 16

// Cache is a bounded TTL+LRU verification cache. Fingerprints hash to shards
// with independent locks, so unrelated lookups never contend.
type Cache struct {
	shards   []*shard
	ttlFloor time.Duration
	now      func() time.Time
}

type shard struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type node struct {
	entry domain.CacheEntry
}

// New creates a cache holding at most capacity entries across all shards.
func New(capacity int) *Cache {
	if capacity < defaultShardCount {
		capacity = defaultShardCount
	}

	c := &Cache{
		shards: make([]*shard, defaultShardCount),
		now:    time.Now,
	}
	perShard := capacity / defaultShardCount
	for i := range c.shards {
		c.shards[i] = &shard{
			capacity: perShard,
			entries:  make(map[string]*list.Element),
			order:    list.New(),
		}
	}

	return c
}

// Get returns the live entry for a fingerprint. Expired entries are purged on
// read and never returned.
func (c *Cache) Get(fingerprint string) (*domain.CacheEntry, bool) {
	s := c.shardFor(fingerprint)

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[fingerprint]
	if !ok {
		return nil, false
	}

	n := el.Value.(*node)
	if n.entry.Expired(c.now()) {
		s.remove(el)
		return nil, false
	}

	s.order.MoveToFront(el)
	entry := n.entry
	return &entry, true
}

// Put stores a decision under the fingerprint with the given TTL, evicting
// an expired entry first and the least-recently-used entry otherwise when
// the shard is full.
func (c *Cache) Put(fingerprint string, result domain.MatchResult, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	s := c.shardFor(fingerprint)
	now := c.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[fingerprint]; ok {
		n := el.Value.(*node)
		n.entry.Result = result
		n.entry.ExpiresAt = now.Add(ttl)
		s.order.MoveToFront(el)
		return
	}

	if s.order.Len() >= s.capacity {
		s.evict(now)
	}

	el := s.order.PushFront(&node{entry: domain.CacheEntry{
		Fingerprint: fingerprint,
		Result:      result,
		ExpiresAt:   now.Add(ttl),
	}})
	s.entries[fingerprint] = el
}

// InvalidateByIdentity drops every entry whose decision references the
// identity. Called by the registry under its mutation lock when an identity
// is disabled.
func (c *Cache) InvalidateByIdentity(identityID string) int {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for el := s.order.Front(); el != nil; {
			next := el.Next()
			if el.Value.(*node).entry.Result.IdentityID == identityID {
				s.remove(el)
				removed++
			}
			el = next
		}
		s.mu.Unlock()
	}
	return removed
}

// Sweep removes all expired entries, bounding memory growth independent of
// access pattern. Called by the maintenance scheduler.
func (c *Cache) Sweep() int {
	now := c.now()
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for el := s.order.Front(); el != nil; {
			next := el.Next()
			if el.Value.(*node).entry.Expired(now) {
				s.remove(el)
				removed++
			}
			el = next
		}
		s.mu.Unlock()
	}
	return removed
}

// Len reports the number of live entries across all shards.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += s.order.Len()
		s.mu.Unlock()
	}
	return n
}

func (c *Cache) shardFor(fingerprint string) *shard {
	h := fnv.New32a()
	h.Write([]byte(fingerprint))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// evict removes one entry: the oldest expired entry if any, else the
// least-recently-used. Caller holds the shard lock.
func (s *shard) evict(now time.Time) {
	for el := s.order.Back(); el != nil; el = el.Prev() {
		if el.Value.(*node).entry.Expired(now) {
			s.remove(el)
			return
		}
	}
	if back := s.order.Back(); back != nil {
		s.remove(back)
	}
}

// remove drops an element from both the map and the LRU list. Caller holds
// the shard lock.
func (s *shard) remove(el *list.Element) {
	delete(s.entries, el.Value.(*node).entry.Fingerprint)
	s.order.Remove(el)
}
