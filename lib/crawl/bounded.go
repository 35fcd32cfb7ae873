// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crawl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bureau-foundation/debugbot/lib/ref"
)

// Bounded wraps a Crawler with a default timeout and coalesces
// concurrent crawls of one conversation: while a crawl is in flight,
// further requests for the same conversation wait for its result.
// The shared crawl is cancelled once every caller waiting on it has
// given up.
type Bounded struct {
	next    Crawler
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group

	mu      sync.Mutex
	waiters map[string]int
	flights map[string]*flight
}

// flight is one shared crawl in the air.
type flight struct {
	cancel context.CancelFunc
}

// NewBounded returns a Bounded crawler. A non-positive timeout means
// [DefaultTimeout]; a nil logger discards.
func NewBounded(next Crawler, timeout time.Duration, logger *slog.Logger) *Bounded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bounded{
		next:    next,
		timeout: timeout,
		logger:  logger,
		waiters: make(map[string]int),
		flights: make(map[string]*flight),
	}
}

type outcome struct {
	result Result
	err    error
}

// Crawl crawls conversation. A non-positive timeout means the
// configured default. One caller giving up does not fail the others:
// the shared crawl runs detached from any single caller and stops only
// when the last of them stops waiting.
func (b *Bounded) Crawl(ctx context.Context, conversation ref.ConversationID, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = b.timeout
	}
	key := conversation.String()

	b.mu.Lock()
	b.waiters[key]++
	b.mu.Unlock()

	results := b.group.DoChan(key, func() (any, error) {
		crawlContext, current := b.takeOff(context.WithoutCancel(ctx), key)
		defer b.land(key, current)
		result, err := b.next.Crawl(crawlContext, conversation, timeout)
		b.logger.Debug("crawl finished",
			"conversation_id", conversation,
			"messages", len(result.Messages),
			"elapsed", result.Elapsed,
			"partial", result.Partial,
			"cached", result.Cached,
		)
		return outcome{result: result, err: err}, nil
	})

	select {
	case done := <-results:
		b.leave(key, false)
		finished := done.Val.(outcome)
		if done.Shared {
			b.logger.Debug("crawl coalesced", "conversation_id", conversation)
		}
		return finished.result, finished.err
	case <-ctx.Done():
		b.leave(key, true)
		return Result{}, ctx.Err()
	}
}

// takeOff registers the crawl of key. When every caller already left,
// the crawl starts cancelled and is forgotten so later callers do not
// join it.
func (b *Bounded) takeOff(parent context.Context, key string) (context.Context, *flight) {
	crawlContext, cancel := context.WithCancel(parent)
	current := &flight{cancel: cancel}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.flights[key] = current
	if b.waiters[key] == 0 {
		b.abandonLocked(key)
	}
	return crawlContext, current
}

// land retires the crawl of key once it returned.
func (b *Bounded) land(key string, landed *flight) {
	b.mu.Lock()
	defer b.mu.Unlock()
	landed.cancel()
	if b.flights[key] == landed {
		delete(b.flights, key)
	}
}

// leave unregisters a caller. The last caller to abandon a crawl
// cancels it.
func (b *Bounded) leave(key string, abandoned bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.waiters[key]--
	if b.waiters[key] > 0 {
		return
	}
	delete(b.waiters, key)
	if abandoned {
		b.abandonLocked(key)
	}
}

// abandonLocked cancels the crawl of key and makes the next caller
// start a fresh one instead of joining it.
func (b *Bounded) abandonLocked(key string) {
	current, ok := b.flights[key]
	if !ok {
		return
	}
	current.cancel()
	delete(b.flights, key)
	b.group.Forget(key)
	b.logger.Debug("crawl abandoned", "conversation_id", key)
}
