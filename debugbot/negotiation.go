// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/debugbot/lib/agreement"
	"github.com/bureau-foundation/debugbot/lib/compose"
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/crawl"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/lib/textcommand"
)

// negotiate announces the command, then on its own goroutine crawls
// the conversation, reconstructs the negotiation state as it was when
// the command arrived, and sends what pipeline composes from it.
func (b *Bot) negotiate(ctx context.Context, target *turn, name, announcement string, pipeline compose.Pipeline) {
	conversation := target.conversation
	trigger := target.trigger
	b.say(ctx, conversation, announcement+crawlNotice)

	pipeline.Clock = b.clock
	b.spawn(conversation, name, func(ctx context.Context) {
		result, ok := b.crawlConversation(ctx, conversation)
		if !ok {
			return
		}
		state := agreement.Reconstruct(result.Messages,
			agreement.AsOf(trigger.Timestamp, trigger.ID),
			agreement.WithLogger(b.logger))
		reply := pipeline.Compose(conversation.id, state)
		b.logger.Info("negotiation command answered",
			"conversation_id", conversation.id,
			"command", name,
			"targets", len(reply.Targets),
			"query_duration", reply.QueryDuration,
			"unresolved_references", state.Unresolved(),
		)
		b.deliver(ctx, conversation, reply.Outbound)
	})
}

// crawlConversation crawls the conversation and reports the outcome to
// the user. A timed-out crawl still counts as a result. It returns
// false when there is nothing to continue with.
func (b *Bot) crawlConversation(ctx context.Context, conversation *conversation) (crawl.Result, bool) {
	result, err := b.crawler.Crawl(ctx, conversation.id, b.timing.CrawlTimeout)
	switch {
	case err == nil:
	case errors.Is(err, crawl.ErrTimeout):
		b.logger.Info("crawl timed out, continuing with partial data",
			"conversation_id", conversation.id,
			"messages", len(result.Messages),
		)
	case ctx.Err() != nil:
		b.logger.Debug("crawl abandoned", "conversation_id", conversation.id, "error", err)
		return crawl.Result{}, false
	default:
		b.logger.Warn("crawl failed", "conversation_id", conversation.id, "error", err)
		b.say(ctx, conversation, "Sorry, I could not crawl the connection data: "+err.Error())
		return crawl.Result{}, false
	}
	b.metrics.crawled(result.Elapsed.Seconds(), result.Partial)

	report := fmt.Sprintf("Finished crawl in %s seconds. The conversation has %d messages.",
		compose.FormatSeconds(result.Elapsed), len(result.Messages))
	switch {
	case result.Partial:
		report += " (partial)"
	case result.Cached:
		report += " (from the message cache)"
	}
	b.say(ctx, conversation, report)
	return result, true
}

// quoted renders the text of id for a confirmation.
func quoted(state *agreement.State, id ref.MessageID) string {
	text, ok := state.TextMessage(id)
	if !ok {
		return ", which had no text message"
	}
	return ", which read, '" + text + "'"
}

func (b *Bot) retractCommand(ctx context.Context, target *turn, args textcommand.Args) {
	counterpart := target.conversation.counterpart
	whose, which := "my", ""
	predicate := agreement.SentBy(b.atom)
	switch {
	case args.Has(3):
		whose = "your"
		predicate = agreement.SentBy(counterpart)
	case args.Has(4):
		which = "proposal "
		predicate = agreement.All(
			agreement.SentBy(b.atom),
			agreement.ActIs(convlog.Proposes, convlog.ProposesToCancel),
		)
	}

	b.negotiate(ctx, target, "retract", "ok, I'll retract "+whose+" latest "+which+"message", compose.Pipeline{
		Finder: compose.Single(func(state *agreement.State) (ref.MessageID, bool) {
			return state.NthLatestMessage(predicate, 0)
		}),
		Referrer: compose.Retracts,
		TextMaker: func(queryDuration time.Duration, state *agreement.State, targets []ref.MessageID) string {
			if len(targets) == 0 {
				return "Sorry, I cannot retract any messages - I did not find any."
			}
			return fmt.Sprintf("Ok, I am hereby retracting %s message%s (uri: %s).\n The query for finding that message took %s seconds.",
				whose, quoted(state, targets[0]), targets[0], compose.FormatSeconds(queryDuration))
		},
	})
}

func (b *Bot) rejectCommand(ctx context.Context, target *turn, args textcommand.Args) {
	whose, sender := "your", target.conversation.counterpart
	if args.Has(2) {
		whose, sender = "my", b.atom
	}

	b.negotiate(ctx, target, "reject", "ok, I'll reject "+whose+" latest rejectable message", compose.Pipeline{
		Finder: compose.Single(func(state *agreement.State) (ref.MessageID, bool) {
			return state.LatestProposesOrClaimsMessageSentBy(sender)
		}),
		Referrer: compose.Rejects,
		TextMaker: func(queryDuration time.Duration, state *agreement.State, targets []ref.MessageID) string {
			if len(targets) == 0 {
				return "Sorry, I cannot reject any of " + whose + " messages - I did not find any suitable message."
			}
			return fmt.Sprintf("Ok, I am hereby rejecting %s message%s (uri: %s).\n The query for finding that message took %s seconds.",
				whose, quoted(state, targets[0]), targets[0], compose.FormatSeconds(queryDuration))
		},
	})
}

// proposeCommand proposes the latest messages as clauses: the bot's
// own by default, the counterpart's for "my", both for "any".
func (b *Bot) proposeCommand(ctx context.Context, target *turn, args textcommand.Args) {
	counterpart := target.conversation.counterpart
	mine, either := args.Has(3), args.Has(4)
	count := args.Int(5, 1, 1, 9)
	allowOwn := either || !mine
	allowCounterpart := either || mine

	whose := "my"
	var senders []agreement.Predicate
	if allowOwn {
		senders = append(senders, agreement.SentBy(b.atom))
	}
	if allowCounterpart {
		senders = append(senders, agreement.SentBy(counterpart))
		whose = "your"
	}
	if allowOwn && allowCounterpart {
		whose = "our"
	}

	announcement := fmt.Sprintf("ok, I'll make a proposal containing %d of %s latest messages as clauses", count, whose)
	b.negotiate(ctx, target, "propose", announcement, compose.Pipeline{
		Finder: func(state *agreement.State) []ref.MessageID {
			return state.NLatestMessages(agreement.Any(senders...), count)
		},
		Referrer: compose.Proposes,
		TextMaker: func(queryDuration time.Duration, _ *agreement.State, targets []ref.MessageID) string {
			if len(targets) == 0 {
				return "Sorry, I cannot propose the messages - I did not find any."
			}
			return fmt.Sprintf("Ok, I am hereby making the proposal, containing %d clauses.\n The query for finding the clauses took %s seconds.",
				len(targets), compose.FormatSeconds(queryDuration))
		},
	})
}

func (b *Bot) acceptCommand(ctx context.Context, target *turn, _ textcommand.Args) {
	counterpart := target.conversation.counterpart
	b.negotiate(ctx, target, "accept", "ok, I'll accept your latest proposal", compose.Pipeline{
		Finder: compose.Single(func(state *agreement.State) (ref.MessageID, bool) {
			return state.LatestPendingProposalOrClaim(counterpart)
		}),
		Referrer: compose.Accepts,
		TextMaker: func(queryDuration time.Duration, _ *agreement.State, targets []ref.MessageID) string {
			if len(targets) == 0 {
				return "Sorry, I cannot accept any proposal - I did not find pending proposals"
			}
			return fmt.Sprintf("Ok, I am hereby accepting your latest proposal (uri: %s).\n The query for finding it took %s seconds.",
				targets[0], compose.FormatSeconds(queryDuration))
		},
	})
}

func (b *Bot) cancelCommand(ctx context.Context, target *turn, _ textcommand.Args) {
	b.negotiate(ctx, target, "cancel", "ok, I'll propose to cancel our latest agreement", compose.Pipeline{
		Finder:   compose.Single((*agreement.State).LatestAgreement),
		Referrer: compose.ProposesToCancel,
		TextMaker: func(queryDuration time.Duration, _ *agreement.State, targets []ref.MessageID) string {
			if len(targets) == 0 {
				return "Sorry, I cannot propose to cancel any agreement - I did not find any"
			}
			return fmt.Sprintf("Ok, I am hereby proposing to cancel our latest agreement (uri: %s).\n The query for finding it took %s seconds.",
				targets[0], compose.FormatSeconds(queryDuration))
		},
	})
}
