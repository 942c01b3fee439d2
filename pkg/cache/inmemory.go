package cache

import (
	"context"
	"sync"
	"time"
)

type (
	entry struct {
		value     string
		expiresAt time.Time
	}

	// InMemory is a string cache with per key TTL. Expired keys are invisible to readers
	// and are removed by Evict.
	InMemory struct {
		storage map[string]entry
		now     func() time.Time

		mx sync.RWMutex
	}
)

func NewInMemory() *InMemory {
	return &InMemory{
		storage: make(map[string]entry, 100), //nolint:mnd // initial capacity
		now:     time.Now,
	}
}

func (c *InMemory) Get(key string) (string, bool) {
	c.mx.RLock()
	defer c.mx.RUnlock()

	e, ok := c.storage[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (c *InMemory) Set(key, value string, ttl time.Duration) {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.storage[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// SetIfAbsent stores the value only if the key is missing or expired and reports whether it was stored.
func (c *InMemory) SetIfAbsent(key, value string, ttl time.Duration) bool {
	c.mx.Lock()
	defer c.mx.Unlock()

	now := c.now()
	if e, ok := c.storage[key]; ok && now.Before(e.expiresAt) {
		return false
	}
	c.storage[key] = entry{value: value, expiresAt: now.Add(ttl)}
	return true
}

// Take returns the value and removes the key in one step.
func (c *InMemory) Take(key string) (string, bool) {
	c.mx.Lock()
	defer c.mx.Unlock()

	e, ok := c.storage[key]
	if !ok {
		return "", false
	}
	delete(c.storage, key)
	if !c.now().Before(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (c *InMemory) Delete(key string) {
	c.mx.Lock()
	defer c.mx.Unlock()

	delete(c.storage, key)
}

// Evict removes expired keys and returns how many were removed.
func (c *InMemory) Evict() int {
	c.mx.Lock()
	defer c.mx.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.storage {
		if !now.Before(e.expiresAt) {
			delete(c.storage, key)
			removed++
		}
	}
	return removed
}

// StartEviction runs Evict every interval until ctx is done.
func (c *InMemory) StartEviction(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Evict()
		}
	}
}
