// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugbot

import (
	"context"
	"slices"
	"time"

	"github.com/adhocore/gronx"

	"github.com/bureau-foundation/debugbot/lib/pacing"
)

// chattyRetry is how long the loop waits after failing to compute the
// next tick.
const chattyRetry = 30 * time.Second

// chattyLoop wakes on every tick of the chatty schedule and gives each
// chatty conversation its chance to hear from the bot.
func (b *Bot) chattyLoop(ctx context.Context) {
	for {
		now := b.clock.Now()
		wait := chattyRetry
		next, err := gronx.NextTickAfter(b.chatty.Schedule, now, false)
		if err != nil {
			b.logger.Error("computing next chatty tick", "schedule", b.chatty.Schedule, "error", err)
		} else {
			wait = next.Sub(now)
		}

		select {
		case <-ctx.Done():
			return
		case <-b.clock.After(wait):
		}
		if err == nil {
			b.act(ctx)
		}
	}
}

// chattyCandidate is a conversation considered on a tick.
type chattyCandidate struct {
	conversation *conversation
	period       pacing.Period
}

// act runs one chatty tick. Conversations the counterpart never wrote
// in are skipped, and those whose counterpart has been silent too long
// stop being chatty. Each other chatty conversation
// gets a message with the configured probability, if pacing allows
// one and the global budget has room: small talk while the
// conversation is active, a nudge once it has gone quiet.
func (b *Bot) act(ctx context.Context) {
	now := b.clock.Now()

	var candidates []chattyCandidate
	b.mu.Lock()
	for _, conversation := range b.conversations {
		if !conversation.chatty {
			continue
		}
		record, _ := b.pacing.Record(conversation.id)
		if record.LastReceived.IsZero() {
			continue
		}
		period := pacing.Classify(record.LastReceived, now)
		if period == pacing.TooLong {
			conversation.chatty = false
			b.logger.Info("conversation went quiet, no longer chatty", "conversation_id", conversation.id)
			continue
		}
		candidates = append(candidates, chattyCandidate{conversation: conversation, period: period})
	}
	b.mu.Unlock()
	slices.SortFunc(candidates, func(left, right chattyCandidate) int {
		return left.conversation.id.Compare(right.conversation.id)
	})

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return
		}
		if b.random.Float64() >= b.chatty.Probability {
			continue
		}
		if !b.pacing.MayProactivelySend(candidate.conversation.id, now) {
			continue
		}
		if !b.limiter.AllowN(now, 1) {
			b.logger.Debug("chatty budget exhausted", "conversation_id", candidate.conversation.id)
			continue
		}
		pool := smallTalk
		if candidate.period == pacing.Long {
			pool = lastCalls
		}
		b.say(candidate.conversation.ctx, candidate.conversation, pool[b.random.IntN(len(pool))])
		b.metrics.chatty()
	}
}
