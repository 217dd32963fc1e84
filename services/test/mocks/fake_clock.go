package mocks

import (
	"sort"
	"sync"
	"time"

	"shiftbook-backend/services"
)

// FakeClock is a virtual clock. Timers due at or before the new time fire
// synchronously inside Advance, in fire-time order. Zero-delay timers fire
// at once on their own goroutine, like time.AfterFunc.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*FakeTimer
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) services.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &FakeTimer{clock: c, fireAt: c.now.Add(d), fn: f}
	if d <= 0 {
		t.fired = true
		go f()
		return t
	}
	c.timers = append(c.timers, t)
	return t
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*FakeTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if !t.fireAt.After(c.now) {
			t.fired = true
			due = append(due, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].fireAt.Before(due[j].fireAt) })
	for _, t := range due {
		t.fn()
	}
}

// PendingTimers counts timers that are neither fired nor stopped.
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type FakeTimer struct {
	clock   *FakeClock
	fireAt  time.Time
	fn      func()
	fired   bool
	stopped bool
}

func (t *FakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			break
		}
	}
	return true
}
