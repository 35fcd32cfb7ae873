// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crawl

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/debugbot/lib/clock"
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
)

// ErrTimeout reports a crawl cut short by its deadline. The result
// returned alongside it is partial but usable.
var ErrTimeout = errors.New("crawl timed out")

// DefaultTimeout bounds a crawl when the caller gives no timeout.
const DefaultTimeout = 60 * time.Second

// Result is the outcome of one crawl. Messages are in no particular
// order and may be shared between callers of a coalesced crawl; treat
// them as read-only.
type Result struct {
	Messages []convlog.Message
	Elapsed  time.Duration
	// Partial is set when the crawl stopped at its deadline.
	Partial bool
	// Cached is set when the messages came from a local copy.
	Cached bool
}

// Crawler fetches the message set of a conversation within timeout.
type Crawler interface {
	Crawl(ctx context.Context, conversation ref.ConversationID, timeout time.Duration) (Result, error)
}

// Source lists the stored messages of a conversation.
// *logstore.Store satisfies it; wrap a *convlog.Log with [LogSource].
type Source interface {
	Messages(ctx context.Context, conversation ref.ConversationID) ([]convlog.Message, error)
}

// Walker is a [Source] that can hand out a conversation's messages
// one at a time. A crawl over a Walker that hits its deadline returns
// the messages visited so far instead of nothing. Walk stops at the
// first error visit returns.
type Walker interface {
	Source
	Walk(ctx context.Context, conversation ref.ConversationID, visit func(convlog.Message) error) error
}

type logSource struct{ log *convlog.Log }

func (s logSource) Messages(_ context.Context, conversation ref.ConversationID) ([]convlog.Message, error) {
	return s.log.Messages(conversation), nil
}

// LogSource adapts an in-memory log to [Source].
func LogSource(log *convlog.Log) Source { return logSource{log: log} }

// SourceCrawler crawls a [Source].
type SourceCrawler struct {
	source Source
	clock  clock.Clock
}

// NewSourceCrawler returns a crawler over source. A nil clk uses the
// wall clock.
func NewSourceCrawler(source Source, clk clock.Clock) *SourceCrawler {
	if clk == nil {
		clk = clock.Real()
	}
	return &SourceCrawler{source: source, clock: clk}
}

type listing struct {
	messages []convlog.Message
	err      error
}

// progress collects the messages a Walker visited so far.
type progress struct {
	mu       sync.Mutex
	messages []convlog.Message
}

func (p *progress) add(message convlog.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
	return nil
}

func (p *progress) snapshot() []convlog.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.messages)
}

// Crawl lists conversation. The listing runs on its own goroutine so
// the deadline holds even against a source that ignores ctx. A
// non-positive timeout means [DefaultTimeout].
//
// On timeout the result is partial: it holds the messages a [Walker]
// visited before the deadline, and nothing for a plain [Source], whose
// listing is all or nothing.
func (c *SourceCrawler) Crawl(ctx context.Context, conversation ref.ConversationID, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	started := c.clock.Now()
	crawlContext, cancel := context.WithCancel(ctx)
	defer cancel()

	seen := &progress{}
	done := make(chan listing, 1)
	go func() {
		if walker, ok := c.source.(Walker); ok {
			err := walker.Walk(crawlContext, conversation, seen.add)
			done <- listing{messages: seen.snapshot(), err: err}
			return
		}
		messages, err := c.source.Messages(crawlContext, conversation)
		done <- listing{messages: messages, err: err}
	}()

	expired := make(chan struct{})
	deadline := c.clock.AfterFunc(timeout, func() { close(expired) })
	defer deadline.Stop()

	select {
	case result := <-done:
		elapsed := c.clock.Now().Sub(started)
		if result.err != nil {
			return Result{Elapsed: elapsed}, fmt.Errorf("crawling conversation %s: %w", conversation, result.err)
		}
		return Result{Messages: result.messages, Elapsed: elapsed}, nil
	case <-expired:
		return Result{Messages: seen.snapshot(), Elapsed: c.clock.Now().Sub(started), Partial: true},
			fmt.Errorf("crawling conversation %s after %v: %w", conversation, timeout, ErrTimeout)
	case <-ctx.Done():
		return Result{Elapsed: c.clock.Now().Sub(started)},
			fmt.Errorf("crawling conversation %s: %w", conversation, ctx.Err())
	}
}
