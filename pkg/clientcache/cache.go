// Package clientcache implements a keyed registry of reusable exchange
// clients with time-bounded validity. Each exchange keeps one Cache instance;
// entries are scoped to a credential/configuration key and expire after a
// configurable idle lifetime.
package clientcache

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultLifetime is the entry lifetime applied when none is configured.
const DefaultLifetime = 10 * time.Minute

// Client is the minimal surface the cache needs from a cached instance.
type Client interface {
	Close() error
}

// Factory builds a client for a key on cache miss.
type Factory[C Client] func() (C, error)

// slot is a single cache entry. A slot is inserted before construction
// finishes; done gates readers until the winning builder resolves it.
type slot[C Client] struct {
	done       chan struct{}
	handle     *Handle[C]
	err        error
	createdAt  time.Time
	lastAccess atomic.Int64 // unix nanoseconds
	ttl        time.Duration
}

// resolved reports whether construction finished, without blocking.
func (s *slot[C]) resolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// expired reports whether the entry outlived its lifetime. Constructing
// slots are never expired.
func (s *slot[C]) expired(now time.Time) bool {
	if !s.resolved() {
		return false
	}
	return now.UnixNano()-s.lastAccess.Load() > int64(s.ttl)
}

// Cache is a concurrent client registry with per-key construction and lazy
// plus periodic expiry. The zero value is not usable; use New.
//
// Synchronization is scoped to the key under contention: racers for the same
// key serialize on that key's slot, unrelated keys never block each other,
// and there is no global lock on the lookup path.
type Cache[C Client] struct {
	entries sync.Map     // string -> *slot[C]
	ttl     atomic.Int64 // nanoseconds, copied into entries at creation
}

// New creates a cache whose new entries live for ttl after their last
// access. A non-positive ttl falls back to DefaultLifetime.
func New[C Client](ttl time.Duration) *Cache[C] {
	c := &Cache[C]{}
	c.Configure(ttl)
	return c
}

// Configure updates the lifetime applied to entries created from now on.
// Existing entries keep the lifetime they were created with.
func (c *Cache[C]) Configure(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultLifetime
	}
	c.ttl.Store(int64(ttl))
}

// Lifetime returns the lifetime currently applied to new entries.
func (c *Cache[C]) Lifetime() time.Duration {
	return time.Duration(c.ttl.Load())
}

// GetOrCreate returns the live handle for key, constructing it with build
// on a miss. Exactly one of the concurrent racers for a key invokes build;
// the rest wait for that result. While an entry is unexpired every call
// returns the same handle instance and refreshes its last access time. A
// failed construction leaves the key absent and surfaces the error.
func (c *Cache[C]) GetOrCreate(key string, build Factory[C]) (*Handle[C], error) {
	for {
		now := time.Now()
		fresh := &slot[C]{
			done:      make(chan struct{}),
			createdAt: now,
			ttl:       c.Lifetime(),
		}
		fresh.lastAccess.Store(now.UnixNano())

		cur, loaded := c.entries.LoadOrStore(key, fresh)
		if !loaded {
			client, err := build()
			if err != nil {
				fresh.err = err
				close(fresh.done)
				c.entries.CompareAndDelete(key, fresh)
				return nil, err
			}

			fresh.handle = newHandle(client)
			close(fresh.done)
			return fresh.handle, nil
		}

		s := cur.(*slot[C])
		<-s.done

		if s.err != nil {
			// The builder already removed the slot; waiters observe the
			// same construction failure instead of rebuilding.
			return nil, s.err
		}

		if s.expired(time.Now()) {
			c.entries.CompareAndDelete(key, s)
			continue
		}

		s.lastAccess.Store(time.Now().UnixNano())
		return s.handle, nil
	}
}

// Get returns the live handle for key without constructing one.
func (c *Cache[C]) Get(key string) (*Handle[C], bool) {
	cur, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}

	s := cur.(*slot[C])
	if !s.resolved() || s.err != nil {
		return nil, false
	}

	now := time.Now()
	if s.expired(now) {
		c.entries.CompareAndDelete(key, s)
		return nil, false
	}

	s.lastAccess.Store(now.UnixNano())
	return s.handle, true
}

// Remove evicts key. It reports whether an entry was actually removed.
func (c *Cache[C]) Remove(key string) bool {
	cur, ok := c.entries.Load(key)
	if !ok {
		return false
	}
	return c.entries.CompareAndDelete(key, cur)
}

// CleanupExpired removes every entry whose lifetime elapsed since its last
// access and returns the number actually removed. Each removal re-checks
// expiry and is an independent compare-and-delete on the entry's slot, so
// the sweep is safe concurrently with lookups and with itself.
//
// Eviction drops the entry without closing its client; handles already
// issued stay usable and releasing them remains the holder's
// responsibility.
func (c *Cache[C]) CleanupExpired() int {
	now := time.Now()
	removed := 0

	c.entries.Range(func(key, value any) bool {
		s := value.(*slot[C])
		if s.expired(now) && c.entries.CompareAndDelete(key, s) {
			removed++
		}
		return true
	})

	return removed
}

// Size returns the current number of entries, constructing ones included.
func (c *Cache[C]) Size() int {
	n := 0
	c.entries.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// Clear drops every entry.
func (c *Cache[C]) Clear() {
	c.entries.Range(func(key, value any) bool {
		c.entries.CompareAndDelete(key, value)
		return true
	})
}
