package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock returns a fixed time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2026-03-02 09:00:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubFeedIDs hands out predictable feed ids: the first is 32 zero bytes,
// then 1, 2, ... in the last byte.
type StubFeedIDs struct {
	mu      sync.Mutex
	counter int
}

func NewStubFeedIDs() *StubFeedIDs {
	return &StubFeedIDs{}
}

func (g *StubFeedIDs) NewFeedID() ([32]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var id [32]byte
	if g.counter > 255 {
		return id, fmt.Errorf("stub feed ids exhausted")
	}
	id[31] = byte(g.counter)
	g.counter++
	return id, nil
}
