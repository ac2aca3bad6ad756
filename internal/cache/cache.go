// Package cache stores response validators for conditional GET requests. The
// transport always revalidates against the platform, so a cached entry is only
// ever served after a 304 confirms it is current.
package cache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrKeyNotFound           = errors.New("key not found")
	ErrEntryExpired          = errors.New("entry expired")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
)

// DefaultMaxSize bounds the memory cache when no size is configured.
const DefaultMaxSize = 1000

// DefaultTTL is how long a validator is kept when no TTL is configured.
const DefaultTTL = 10 * time.Minute

// Entry is a cached response body with its validator.
type Entry struct {
	Data      []byte      `json:"data"`
	ETag      string      `json:"etag"`
	Header    http.Header `json:"header,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Expired reports whether e is past its expiry. A zero expiry never expires.
func (e *Entry) Expired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// Cache is a response cache backend.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

type memoryItem struct {
	entry *Entry
	seq   uint64
}

// MemoryCache is a bounded in-process cache evicting the oldest insertion.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]memoryItem
	maxSize int
	seq     uint64
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &MemoryCache{
		items:   make(map[string]memoryItem),
		maxSize: maxSize,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Entry, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrKeyNotFound
	}

	if item.entry.Expired() {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()

		return nil, ErrEntryExpired
	}

	return item.entry, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; !ok && len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	c.seq++
	c.items[key] = memoryItem{entry: entry, seq: c.seq}

	return nil
}

func (c *MemoryCache) evictOldest() {
	var (
		oldestKey string
		oldestSeq uint64
	)

	for k, item := range c.items {
		if oldestKey == "" || item.seq < oldestSeq {
			oldestKey, oldestSeq = k, item.seq
		}
	}

	delete(c.items, oldestKey)
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)

	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]memoryItem)

	return nil
}

func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Cleanup drops expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, item := range c.items {
		if item.entry.Expired() {
			delete(c.items, k)
		}
	}
}

// Len reports the number of entries held, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always returns an error (nothing cached).
func (c *NoOpCache) Get(context.Context, string) (*Entry, error) {
	return nil, ErrCacheDisabled
}

func (c *NoOpCache) Set(context.Context, string, *Entry) error { return nil }
func (c *NoOpCache) Delete(context.Context, string) error      { return nil }
func (c *NoOpCache) Clear(context.Context) error               { return nil }
func (c *NoOpCache) Has(context.Context, string) bool          { return false }

// Chain layers cache backends. Reads go to the levels in order and a hit is
// copied into the levels before it; writes go to every level.
type Chain struct {
	caches []Cache
}

// NewChain creates a new cache chain.
func NewChain(caches ...Cache) *Chain {
	return &Chain{caches: caches}
}

// Get returns the first hit and copies it into the earlier levels.
func (c *Chain) Get(ctx context.Context, key string) (*Entry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err == nil {
			for j := range i {
				_ = c.caches[j].Set(ctx, key, entry)
			}

			return entry, nil
		}
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set stores an item in all caches.
func (c *Chain) Set(ctx context.Context, key string, entry *Entry) error {
	var errs []error

	for _, cache := range c.caches {
		errs = append(errs, cache.Set(ctx, key, entry))
	}

	return errors.Join(errs...)
}

// Delete removes an item from all caches.
func (c *Chain) Delete(ctx context.Context, key string) error {
	var errs []error

	for _, cache := range c.caches {
		errs = append(errs, cache.Delete(ctx, key))
	}

	return errors.Join(errs...)
}

// Clear removes all items from all caches.
func (c *Chain) Clear(ctx context.Context) error {
	var errs []error

	for _, cache := range c.caches {
		errs = append(errs, cache.Clear(ctx))
	}

	return errors.Join(errs...)
}

// Has checks if a key exists in any cache.
func (c *Chain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}

// Close closes every level that holds a connection.
func (c *Chain) Close() error {
	var errs []error

	for _, cache := range c.caches {
		if closer, ok := cache.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}

	return errors.Join(errs...)
}
