// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crawl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
)

// Cache is a Crawler that answers from a local copy of conversations
// it has seen in full.
//
// A conversation becomes complete after a full crawl through the cache
// while it is eager. From then on every observed message is recorded,
// so the copy stays whole and crawls are answered locally. Switching
// to lazy drops all completeness: recording stops, and the copy can no
// longer be trusted.
type Cache struct {
	next   Crawler
	logger *slog.Logger

	mu       sync.Mutex
	eager    bool
	log      *convlog.Log
	complete map[ref.ConversationID]bool
}

// NewCache returns a Cache in front of next.
func NewCache(next Crawler, eager bool, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		next:     next,
		logger:   logger,
		eager:    eager,
		log:      convlog.NewLog(),
		complete: make(map[ref.ConversationID]bool),
	}
}

// Eager reports whether the cache records observed messages.
func (c *Cache) Eager() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eager
}

// SetEager switches recording on or off. It reports whether the mode
// changed.
func (c *Cache) SetEager(eager bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eager == eager {
		return false
	}
	c.eager = eager
	if !eager {
		clear(c.complete)
		c.log = convlog.NewLog()
	}
	c.logger.Info("message cache mode changed", "eager", eager)
	return true
}

// Observe records a message the bot received or sent. It does nothing
// while lazy.
func (c *Cache) Observe(message convlog.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.eager {
		return
	}
	if _, err := c.log.Append(message); err != nil {
		c.logger.Warn("not caching invalid message",
			"conversation_id", message.Conversation,
			"message_id", message.ID,
			"error", err,
		)
	}
}

// Forget drops the local copy of conversation.
func (c *Cache) Forget(conversation ref.ConversationID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.complete, conversation)
	c.log.Forget(conversation)
}

// Crawl answers from the local copy when conversation is complete and
// the cache is eager, and crawls next otherwise.
func (c *Cache) Crawl(ctx context.Context, conversation ref.ConversationID, timeout time.Duration) (Result, error) {
	c.mu.Lock()
	if c.eager && c.complete[conversation] {
		messages := c.log.Messages(conversation)
		c.mu.Unlock()
		return Result{Messages: messages, Cached: true}, nil
	}
	c.mu.Unlock()

	result, err := c.next.Crawl(ctx, conversation, timeout)
	if err != nil || result.Partial {
		return result, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eager {
		for _, message := range result.Messages {
			if _, appendErr := c.log.Append(message); appendErr != nil {
				c.logger.Warn("not caching invalid message",
					"conversation_id", conversation,
					"message_id", message.ID,
					"error", appendErr,
				)
			}
		}
		c.complete[conversation] = true
	}
	return result, nil
}
