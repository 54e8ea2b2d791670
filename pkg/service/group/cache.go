package group

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// rootCache is a time-boxed cache of the derived group. A hit may be stale by at
// most the TTL; every registry mutation invalidates it explicitly, so the TTL only
// bounds staleness caused by writes committed through other instances.
type rootCache struct {
	mu       sync.Mutex
	clock    clock.Clock
	ttl      time.Duration
	group    *Group
	storedAt time.Time
}

func newRootCache(clk clock.Clock, ttl time.Duration) *rootCache {
	return &rootCache{clock: clk, ttl: ttl}
}

func (c *rootCache) get() *Group {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.group == nil {
		return nil
	}
	if c.clock.Now().Sub(c.storedAt) >= c.ttl {
		c.group = nil
		return nil
	}
	return c.group
}

func (c *rootCache) set(group *Group) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.group = group
	c.storedAt = c.clock.Now()
}

func (c *rootCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.group = nil
}
