// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// Fake returns a FakeClock standing at initial. Time only moves when
// Advance or AdvanceTo is called.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{now: initial}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a manually driven Clock. Pending After channels and
// AfterFunc callbacks fire while Advance runs, earliest deadline
// first, in the goroutine that called Advance. A callback must not
// call Advance itself.
type FakeClock struct {
	mu       sync.Mutex
	now      time.Time
	pending  []*fakeTimer
	sequence uint64
	changed  *sync.Cond
}

type fakeTimer struct {
	deadline time.Time
	// sequence breaks deadline ties in registration order.
	sequence uint64
	channel  chan time.Time
	callback func()
	done     bool
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a one-shot channel timer.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.registerLocked(&fakeTimer{deadline: c.now.Add(d), channel: channel})
	return channel
}

// AfterFunc registers f to run when the clock passes now+d. With a
// non-positive d, f runs before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stop: func() bool { return false }}
	}

	c.mu.Lock()
	timer := &fakeTimer{deadline: c.now.Add(d), callback: f}
	c.registerLocked(timer)
	c.mu.Unlock()

	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if timer.done {
			return false
		}
		timer.done = true
		c.changed.Broadcast()
		return true
	}}
}

func (c *FakeClock) registerLocked(timer *fakeTimer) {
	c.sequence++
	timer.sequence = c.sequence
	c.pending = append(c.pending, timer)
	c.changed.Broadcast()
}

// Advance moves the clock forward by d and fires every timer whose
// deadline is at or before the new time.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	c.AdvanceTo(target)
}

// AdvanceTo moves the clock to target (never backwards) and fires due
// timers in deadline order. While a timer fires, Now reports its
// deadline. Timers registered by a firing callback fire in the same
// call when they are already due.
func (c *FakeClock) AdvanceTo(target time.Time) {
	for {
		timer := c.popDue(target)
		if timer == nil {
			return
		}
		if timer.callback != nil {
			timer.callback()
			continue
		}
		select {
		case timer.channel <- timer.deadline:
		default:
		}
	}
}

// popDue removes and returns the earliest live timer due at target and
// moves the clock to its deadline. With nothing due it moves the clock
// to target and returns nil.
func (c *FakeClock) popDue(target time.Time) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = slices.DeleteFunc(c.pending, func(timer *fakeTimer) bool { return timer.done })
	if len(c.pending) == 0 {
		c.moveLocked(target)
		return nil
	}
	earliest := slices.MinFunc(c.pending, func(a, b *fakeTimer) int {
		if compared := a.deadline.Compare(b.deadline); compared != 0 {
			return compared
		}
		return int(a.sequence) - int(b.sequence)
	})
	if earliest.deadline.After(target) {
		c.moveLocked(target)
		return nil
	}
	c.moveLocked(earliest.deadline)
	earliest.done = true
	c.changed.Broadcast()
	return earliest
}

func (c *FakeClock) moveLocked(to time.Time) {
	if to.After(c.now) {
		c.now = to
	}
}

// WaitForTimers blocks until at least n timers are pending. Tests call
// it before Advance when another goroutine is about to register a
// timer.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of timers that have neither fired
// nor been stopped.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, timer := range c.pending {
		if !timer.done {
			count++
		}
	}
	return count
}
