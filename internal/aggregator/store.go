package aggregator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/bearwatch/internal/sighting"
)

// SnapshotCacheKey is the key of the latest snapshot in the cache store
const SnapshotCacheKey = "bear_hotspots_cache_v1"

// Store holds the latest snapshot. Replace is a whole-value overwrite and
// concurrent scans resolve last-writer-wins.
type Store interface {
	// Get returns the latest snapshot and whether one has been stored
	Get() (sighting.Snapshot, bool)
	// Replace overwrites the stored snapshot
	Replace(s sighting.Snapshot)
	// Prepend stores a copy of the latest snapshot with sg placed first and
	// returns it
	Prepend(sg sighting.Sighting) sighting.Snapshot
}

// MemoryStore keeps the snapshot in an atomic pointer. The zero value is ready to use.
type MemoryStore struct {
	current atomic.Pointer[sighting.Snapshot]
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (sighting.Snapshot, bool) {
	p := m.current.Load()
	if p == nil {
		return sighting.NewSnapshot(nil, time.UnixMilli(0)), false
	}
	return *p, true
}

func (m *MemoryStore) Replace(s sighting.Snapshot) {
	m.current.Store(&s)
}

func (m *MemoryStore) Prepend(sg sighting.Sighting) sighting.Snapshot {
	for {
		old := m.current.Load()
		base := sighting.NewSnapshot(nil, time.Now())
		if old != nil {
			base = *old
		}
		next := base.WithPrepended(sg)
		if m.current.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// CacheStore keeps the snapshot in a go-cache entry that expires after ttl.
// A zero ttl never expires.
type CacheStore struct {
	cache *cache.Cache
	ttl   time.Duration
	mu    sync.Mutex // serializes Prepend's read-modify-write
}

// NewCacheStore creates a store whose snapshot expires after ttl
func NewCacheStore(ttl time.Duration) *CacheStore {
	expiration := ttl
	if expiration <= 0 {
		expiration = cache.NoExpiration
	}
	cleanup := expiration
	if cleanup == cache.NoExpiration || cleanup > time.Hour {
		cleanup = time.Hour
	}
	return &CacheStore{
		cache: cache.New(expiration, cleanup),
		ttl:   expiration,
	}
}

func (c *CacheStore) Get() (sighting.Snapshot, bool) {
	v, ok := c.cache.Get(SnapshotCacheKey)
	if !ok {
		return sighting.NewSnapshot(nil, time.UnixMilli(0)), false
	}
	return v.(sighting.Snapshot), true
}

func (c *CacheStore) Replace(s sighting.Snapshot) {
	c.cache.Set(SnapshotCacheKey, s, c.ttl)
}

func (c *CacheStore) Prepend(sg sighting.Sighting) sighting.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	base, ok := c.Get()
	if !ok {
		base = sighting.NewSnapshot(nil, time.Now())
	}
	next := base.WithPrepended(sg)
	c.Replace(next)
	return next
}
