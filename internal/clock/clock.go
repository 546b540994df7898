// Package clock provides a testable source of UNIX timestamps for the
// overlay client. It mirrors the monotonic-uniqueness guarantee video
// metadata and flood bookkeeping need: two calls in the same wall-clock
// second must still produce distinct, increasing values.
package clock

import (
	"sync"
	"time"
)

// Clock reports UNIX epoch timestamps; NowUnique hands out strictly
// increasing ones.
type Clock struct {
	mu         sync.Mutex
	lastUnique uint32
	nowFn      func() uint32 // overridable for testing
}

// New creates a Clock backed by the system clock.
func New() *Clock {
	return &Clock{
		nowFn: func() uint32 {
			return uint32(time.Now().Unix())
		},
	}
}

// Now returns the current UNIX epoch time as uint32.
func (c *Clock) Now() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowFn()
}

// NowUnique returns a strictly increasing timestamp. If the underlying
// clock hasn't advanced past the last value handed out, the internal
// counter is bumped by one instead of returning a duplicate.
func (c *Clock) NowUnique() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.nowFn()
	if t <= c.lastUnique {
		c.lastUnique++
		return c.lastUnique
	}
	c.lastUnique = t
	return t
}
