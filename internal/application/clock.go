package application

import (
	"sync"
	"time"
)

// Clock lets tests pin result timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now().
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns T and advances it by Step on every call.
type FixedClock struct {
	mu   sync.Mutex
	T    time.Time
	Step time.Duration
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.T
	c.T = c.T.Add(c.Step)
	return now
}
