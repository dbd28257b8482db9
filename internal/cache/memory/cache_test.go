package memory_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mvfy/verify/internal/cache/memory"
	"github.com/mvfy/verify/internal/domain"
)

func result(identityID string) domain.MatchResult {
	return domain.MatchResult{
		Matched:    identityID != "",
		IdentityID: identityID,
		DecidedAt:  time.Now(),
		Source:     domain.SourceRegistry,
	}
}

func TestCache_PutGet(t *testing.T) {
	cache := memory.New(64)

	cache.Put("fp-1", result("alice"), time.Minute)

	entry, ok := cache.Get("fp-1")
	require.True(t, ok)
	require.Equal(t, "alice", entry.Result.IdentityID)
	require.Equal(t, 1, cache.Len())

	_, ok = cache.Get("fp-unknown")
	require.False(t, ok)
}

func TestCache_LazyExpiryOnRead(t *testing.T) {
	cache := memory.New(64)

	cache.Put("fp-1", result("alice"), 20*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	// Expired entries are never returned, even without a sweep.
	_, ok := cache.Get("fp-1")
	require.False(t, ok)
	require.Zero(t, cache.Len())
}

func TestCache_Overwrite(t *testing.T) {
	cache := memory.New(64)

	cache.Put("fp-1", result("alice"), time.Minute)
	cache.Put("fp-1", result(""), time.Minute)

	entry, ok := cache.Get("fp-1")
	require.True(t, ok)
	require.False(t, entry.Result.Matched)
	require.Equal(t, 1, cache.Len())
}

func TestCache_Sweep(t *testing.T) {
	cache := memory.New(64)

	cache.Put("fp-short", result("alice"), 20*time.Millisecond)
	cache.Put("fp-long", result("bob"), time.Minute)

	time.Sleep(50 * time.Millisecond)

	removed := cache.Sweep()
	require.Equal(t, 1, removed)
	require.Equal(t, 1, cache.Len())

	_, ok := cache.Get("fp-long")
	require.True(t, ok)
}

func TestCache_InvalidateByIdentity(t *testing.T) {
	cache := memory.New(64)

	// Same identity cached under several fingerprints (different cameras).
	cache.Put("fp-1", result("alice"), time.Minute)
	cache.Put("fp-2", result("alice"), time.Minute)
	cache.Put("fp-3", result("bob"), time.Minute)

	removed := cache.InvalidateByIdentity("alice")
	require.Equal(t, 2, removed)

	_, ok := cache.Get("fp-1")
	require.False(t, ok)
	_, ok = cache.Get("fp-2")
	require.False(t, ok)
	_, ok = cache.Get("fp-3")
	require.True(t, ok)
}

func TestCache_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	// Capacity 16 spreads one slot per shard; keys hashing to the same
	// shard contend for it, so filling well past capacity must keep Len
	// bounded and favor recent entries.
	cache := memory.New(16)

	for i := range 64 {
		cache.Put(fmt.Sprintf("fp-%d", i), result("alice"), time.Minute)
	}

	require.LessOrEqual(t, cache.Len(), 16)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := memory.New(256)

	var wg sync.WaitGroup
	for worker := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				fp := fmt.Sprintf("fp-%d-%d", worker, i)
				cache.Put(fp, result("alice"), time.Minute)
				cache.Get(fp)
				if i%10 == 0 {
					cache.Sweep()
				}
			}
		}()
	}
	wg.Wait()

	require.Positive(t, cache.Len())
}
