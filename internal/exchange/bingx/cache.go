package bingx

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"main/pkg/clientcache"
)

// Handle is a cached BingX client handle.
type Handle = clientcache.Handle[*Client]

// Clients is the process registry of cached BingX clients.
type Clients struct {
	cache *clientcache.Cache[*Client]
}

// NewClients creates a registry whose entries live for ttl after their
// last access.
func NewClients(ttl time.Duration) *Clients {
	return &Clients{cache: clientcache.New[*Client](ttl)}
}

func cacheKey(creds Credentials, opt Option) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%t:%d:%d:%s",
		creds.APIKey, creds.APISecret, creds.Demo,
		opt.RecvWindow, opt.Timeout, opt.BaseURL,
	))
	return hex.EncodeToString(sum[:])
}

// GetOrCreate returns the cached handle for the credentials, constructing
// a client when none is live.
func (r *Clients) GetOrCreate(creds Credentials, opt Option) (*Handle, error) {
	opt = opt.withDefaults()
	return r.cache.GetOrCreate(cacheKey(creds, opt), func() (*Client, error) {
		return New(creds, opt)
	})
}

// Get returns the cached handle for the credentials without constructing.
func (r *Clients) Get(creds Credentials, opt Option) (*Handle, bool) {
	opt = opt.withDefaults()
	return r.cache.Get(cacheKey(creds, opt))
}

// Remove evicts the entry for the credentials, if any.
func (r *Clients) Remove(creds Credentials, opt Option) bool {
	opt = opt.withDefaults()
	return r.cache.Remove(cacheKey(creds, opt))
}

// Configure updates the lifetime applied to entries created from now on.
func (r *Clients) Configure(ttl time.Duration) {
	r.cache.Configure(ttl)
}

// CleanupExpired removes expired entries and returns the count removed.
func (r *Clients) CleanupExpired() int {
	return r.cache.CleanupExpired()
}

// CreateCleanupTask starts a periodic background sweep of expired entries.
func (r *Clients) CreateCleanupTask(interval time.Duration) *clientcache.Task {
	return r.cache.CreateCleanupTask(interval)
}

// Size returns the current number of cached clients.
func (r *Clients) Size() int {
	return r.cache.Size()
}

// Clear drops every cached client.
func (r *Clients) Clear() {
	r.cache.Clear()
}
