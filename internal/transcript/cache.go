package transcript

import (
	"strings"
	"sync"
	"time"
)

// CacheEntry is a completed transcript plus the moment it was stored.
// Owned exclusively by the cache; expiry is judged lazily on lookup.
type CacheEntry struct {
	Transcript Transcript
	StoredAt   time.Time
}

// CacheStore is the storage abstraction behind TranscriptCache.
// Implementations need no locking of their own; TranscriptCache serializes
// all access.
type CacheStore interface {
	Get(key string) (CacheEntry, bool)
	Set(key string, e CacheEntry)
	Delete(key string)
	Len() int
}

// InMemoryCacheStore is a map-backed implementation of CacheStore.
type InMemoryCacheStore struct {
	entries map[string]CacheEntry
}

// NewInMemoryCacheStore returns a new empty in-memory store.
func NewInMemoryCacheStore() *InMemoryCacheStore {
	return &InMemoryCacheStore{entries: make(map[string]CacheEntry)}
}

// Get implements CacheStore.Get.
func (s *InMemoryCacheStore) Get(key string) (CacheEntry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

// Set implements CacheStore.Set.
func (s *InMemoryCacheStore) Set(key string, e CacheEntry) {
	s.entries[key] = e
}

// Delete implements CacheStore.Delete.
func (s *InMemoryCacheStore) Delete(key string) {
	delete(s.entries, key)
}

// Len implements CacheStore.Len.
func (s *InMemoryCacheStore) Len() int {
	return len(s.entries)
}

// TranscriptCache is a concurrency-safe TTL cache for completed
// transcripts. Expired entries are evicted on the next lookup of their
// key; there is no background sweeper at this scale.
type TranscriptCache struct {
	mu    sync.RWMutex
	store CacheStore
	ttl   time.Duration
	now   func() time.Time
}

// NewTranscriptCache constructs a cache with a default in-memory store.
func NewTranscriptCache(ttl time.Duration) *TranscriptCache {
	return NewTranscriptCacheWithClock(NewInMemoryCacheStore(), ttl, time.Now)
}

// NewTranscriptCacheWithClock constructs a cache with an explicit store
// and clock. Tests inject a controllable clock to exercise expiry without
// sleeping.
func NewTranscriptCacheWithClock(store CacheStore, ttl time.Duration, now func() time.Time) *TranscriptCache {
	if now == nil {
		now = time.Now
	}
	return &TranscriptCache{store: store, ttl: ttl, now: now}
}

// Get returns the cached transcript for key if present and unexpired.
// An expired entry is deleted and reported as a miss.
func (c *TranscriptCache) Get(key string) (Transcript, bool) {
	c.mu.RLock()
	e, ok := c.store.Get(key)
	c.mu.RUnlock()
	if !ok {
		return Transcript{}, false
	}

	if c.now().Sub(e.StoredAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; another caller may have replaced
		// the entry with a fresh one in the meantime.
		if cur, ok := c.store.Get(key); ok && c.now().Sub(cur.StoredAt) >= c.ttl {
			c.store.Delete(key)
		}
		c.mu.Unlock()
		return Transcript{}, false
	}

	return e.Transcript, true
}

// Put stores a completed transcript under key, stamped with the current time.
func (c *TranscriptCache) Put(key string, t Transcript) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Set(key, CacheEntry{Transcript: t, StoredAt: c.now()})
}

// Len returns the number of stored entries, expired or not. Used for the
// cache size gauge.
func (c *TranscriptCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Len()
}

// CacheKey derives the cache and single-flight key for a video and an
// already-normalized language preference list.
func CacheKey(videoID VideoID, langs []LanguageCode) string {
	parts := make([]string, len(langs))
	for i, l := range langs {
		parts[i] = string(l)
	}
	return string(videoID) + "|" + strings.Join(parts, ",")
}
