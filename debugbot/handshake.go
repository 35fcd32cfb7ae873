// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugbot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	ignorePattern = regexp.MustCompile(`(?i)ignore`)
	denyPattern   = regexp.MustCompile(`(?i)deny`)
	waitPattern   = regexp.MustCompile(`(?i)wait(\s+([0-9]{1,2}))?`)
)

// handshake is the bot's decision on a connect request.
type handshake struct {
	ignore bool
	deny   bool
	wait   bool
	delay  time.Duration
}

// parseHandshake reads the keywords of a connect request text. "wait"
// without a number waits defaultWait; longer waits are capped at
// maxWait.
func parseHandshake(text string, defaultWait, maxWait time.Duration) handshake {
	decision := handshake{
		ignore: ignorePattern.MatchString(text),
		deny:   denyPattern.MatchString(text),
	}
	if match := waitPattern.FindStringSubmatch(text); match != nil {
		decision.wait = true
		decision.delay = defaultWait
		if seconds, err := strconv.Atoi(match[2]); err == nil {
			decision.delay = time.Duration(seconds) * time.Second
		}
		decision.delay = min(decision.delay, maxWait)
	}
	return decision
}

// reply is the text the bot answers the request with.
func (h handshake) reply() string {
	if !h.wait && !h.deny {
		return WelcomeText + " " + WelcomeHelpText
	}
	verb := "Accepting"
	if h.deny {
		verb = "Denying"
	}
	text := WelcomeText + " " + verb + " your request"
	if h.wait {
		text += fmt.Sprintf(" after a timeout of %d seconds", int(h.delay/time.Second))
	}
	return text
}

// handleConnectRequest answers a connect request: ignore it, deny it
// by closing, or accept it by opening, optionally after a wait.
func (b *Bot) handleConnectRequest(ctx context.Context, request ConnectRequested) {
	decision := parseHandshake(request.Text, b.timing.DefaultWait, b.timing.MaxWait)
	if decision.ignore {
		b.logger.Debug("ignoring connect request as asked",
			"conversation_id", request.Conversation,
			"from", request.From,
		)
		return
	}

	conversation := b.conversationFor(ctx, request.Conversation, request.From)
	b.pacing.RecordReceived(conversation.id, b.clock.Now())
	if request.AlreadyConnected {
		b.say(conversation.ctx, conversation, ConnectedText)
		return
	}

	text := decision.reply()
	answer := func() {
		ctx := conversation.ctx
		if decision.deny {
			track(b, conversation, b.lifecycle.Close(ctx, conversation.id, text)).Then(
				func(struct{}) { b.endConversation(conversation.id, "connect request denied") },
				func(err error) { b.reportFailure(ctx, conversation, "deny the request", err) },
			)
			return
		}
		track(b, conversation, b.lifecycle.Open(ctx, conversation.id, text)).Then(
			func(struct{}) {
				b.pacing.RecordSent(conversation.id, b.clock.Now())
				b.logger.Info("connect request accepted", "conversation_id", conversation.id)
			},
			func(err error) { b.reportFailure(ctx, conversation, "accept the request", err) },
		)
	}

	b.logger.Info("answering connect request",
		"conversation_id", conversation.id,
		"from", request.From,
		"deny", decision.deny,
		"delay", decision.delay,
	)
	if decision.wait {
		b.scheduler.After(conversation.id, decision.delay, answer)
		return
	}
	answer()
}
