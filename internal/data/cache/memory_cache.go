package cache

import (
	"context"
	"sync"

	"pyshape/internal/core/ports"
)

var _ ports.CleanCache = (*MemoryCache)(nil)

// MemoryCache is the process-local cache used when the on-disk one is off.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[memoryKey]string
}

type memoryKey struct {
	path        string
	fingerprint string
}

func NewMemory() *MemoryCache {
	return &MemoryCache{entries: make(map[memoryKey]string)}
}

func (c *MemoryCache) Lookup(_ context.Context, key ports.CacheKey) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hash, ok := c.entries[memoryKey{key.Path, key.Fingerprint}]
	return ok && hash == key.Hash, nil
}

func (c *MemoryCache) Record(_ context.Context, key ports.CacheKey, _ ports.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[memoryKey{key.Path, key.Fingerprint}] = key.Hash
	return nil
}

func (c *MemoryCache) Clear(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := int64(len(c.entries))
	c.entries = make(map[memoryKey]string)
	return n, nil
}

func (c *MemoryCache) Close() error { return nil }
