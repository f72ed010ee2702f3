package feed

import (
	"sync"
	"time"
)

// resultCache holds the last live aggregate for a fixed TTL.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	result  Result
	expires time.Time
	valid   bool
}

func (c *resultCache) get(now time.Time) (Result, bool) {
	if c.ttl <= 0 {
		return Result{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || !now.Before(c.expires) {
		return Result{}, false
	}
	return c.result.clone(), true
}

func (c *resultCache) put(now time.Time, r Result) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = r.clone()
	c.expires = now.Add(c.ttl)
	c.valid = true
}

func (c *resultCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
