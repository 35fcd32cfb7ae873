// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugbot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/lib/textcommand"
	"github.com/bureau-foundation/debugbot/messaging"
)

// commandTable lists the commands in the order they are matched and
// shown in the usage text.
func (b *Bot) commandTable() *textcommand.Table[*turn] {
	return textcommand.MustNewTable(b.reply,
		textcommand.UsageBinding[*turn](),
		textcommand.Binding[*turn]{
			Name:    "hint",
			Help:    "create a new atom and send me an atom or socket hint (between random or incompatible sockets)",
			Pattern: `hint(\s+((random|incompatible)\s+)?socket)?`,
			Handle:  b.hintCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "close",
			Help:    "close the current connection",
			Pattern: `close`,
			Handle:  b.closeCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "modify",
			Help:    "modify the atom's description",
			Pattern: `modify`,
			Handle:  b.modifyCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "connect",
			Help:    "create a new atom and send connection request to it",
			Pattern: `connect`,
			Handle:  b.connectCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "deactivate",
			Help:    "deactivate remote atom of the current connection",
			Pattern: `deactivate`,
			Handle:  b.deactivateCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "chatty",
			Help:    "send chat messages spontaneously every now and then? (default: on)",
			Pattern: `chatty(?:\s+(\S+))?`,
			Handle:  b.chattyCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "cache",
			Help:    "use lazy or eager message cache",
			Pattern: `cache(?:\s+(\S+))?`,
			Handle:  b.cacheCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "send",
			Help:    "send N messages, one per second. N must be an integer between 1 and 9",
			Pattern: `send\s+([1-9])`,
			Handle:  b.sendCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "validate",
			Help:    "download the connection data and validate it",
			Pattern: `validate`,
			Handle:  b.validateCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "retract",
			Help:    "retract the last (proposal) message you sent, or the last message I sent",
			Pattern: `retract(\s+((mine)|(proposal)))?`,
			Handle:  b.retractCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "reject",
			Help:    "reject the last rejectable message I (you) sent",
			Pattern: `reject(\s+(yours))?`,
			Handle:  b.rejectCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "propose",
			Help:    "propose one (N, max 9) of my(/your/any) messages for an agreement",
			Pattern: `propose(\s+((my)|(any))?\s*([1-9])?)?`,
			Handle:  b.proposeCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "accept",
			Help:    "accept the last proposal/claim made (including cancellation proposals)",
			Pattern: `accept`,
			Handle:  b.acceptCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "cancel",
			Help:    "propose to cancel the newest agreement (that wasn't only a cancellation)",
			Pattern: `cancel`,
			Handle:  b.cancelCommand,
		},
		textcommand.Binding[*turn]{
			Name:    "inject",
			Help:    "send a message in this connection that will be forwarded to all other connections we have",
			Pattern: `inject`,
			Handle:  b.injectCommand,
		},
	)
}

func (b *Bot) hintCommand(ctx context.Context, target *turn, args textcommand.Args) {
	kind := AtomHint
	if args.Has(1) {
		switch args.Group(3) {
		case "random":
			kind = RandomSocketHint
		case "incompatible":
			kind = IncompatibleSocketHint
		default:
			kind = SocketHint
		}
	}
	conversation := target.conversation
	b.say(ctx, conversation, "Ok, I'll create a new atom and send a "+kind.String()+" to you.")
	b.withDebugAtom(ctx, conversation, "hint", func(atom ref.AtomID) {
		b.hint(ctx, conversation, atom, kind)
	})
}

// hint sends a hint of kind from atom, falling back from socket hints
// to random compatible sockets and then to incompatible sockets when
// the atoms have no pair of the requested kind.
func (b *Bot) hint(ctx context.Context, conversation *conversation, atom ref.AtomID, kind HintKind) {
	track(b, conversation, b.lifecycle.Hint(ctx, atom, conversation.counterpart, kind)).Then(
		func(sent HintKind) {
			b.say(ctx, conversation, fmt.Sprintf("Sending %s to %s with target %s.", sent, conversation.counterpart, atom))
		},
		func(err error) {
			if !errors.Is(err, ErrNoSuitableSockets) {
				b.reportFailure(ctx, conversation, "send the hint", err)
				return
			}
			switch kind {
			case SocketHint:
				b.say(ctx, conversation, "Default sockets are not supported by the atoms. "+
					"Falling back to a random compatible socket combination")
				b.hint(ctx, conversation, atom, RandomSocketHint)
			case RandomSocketHint:
				b.say(ctx, conversation, "No compatible sockets found, trying incompatible sockets")
				b.hint(ctx, conversation, atom, IncompatibleSocketHint)
			default:
				b.say(ctx, conversation, "No suitable sockets found. Not sending any hint.")
			}
		},
	)
}

// withDebugAtom creates a debug atom and, after the connect delay,
// hands it to then.
func (b *Bot) withDebugAtom(ctx context.Context, conversation *conversation, purpose string, then func(atom ref.AtomID)) {
	track(b, conversation, b.lifecycle.CreateAtom(ctx, conversation.id)).Then(
		func(atom ref.AtomID) {
			b.logger.Info("debug atom created",
				"conversation_id", conversation.id,
				"atom", atom,
				"purpose", purpose,
			)
			b.scheduler.After(conversation.id, b.timing.ConnectDelay, func() { then(atom) })
		},
		func(err error) { b.reportFailure(ctx, conversation, "create a debug atom", err) },
	)
}

func (b *Bot) closeCommand(ctx context.Context, target *turn, _ textcommand.Args) {
	conversation := target.conversation
	b.say(ctx, conversation, closeText)
	track(b, conversation, b.lifecycle.Close(ctx, conversation.id, "")).Then(
		func(struct{}) { b.endConversation(conversation.id, "closed by command") },
		func(err error) { b.reportFailure(ctx, conversation, "close this connection", err) },
	)
}

func (b *Bot) modifyCommand(ctx context.Context, target *turn, _ textcommand.Args) {
	conversation := target.conversation
	b.say(ctx, conversation, modifyText)
	track(b, conversation, b.lifecycle.ReplaceContent(ctx, conversation.id)).Then(
		func(struct{}) { b.logger.Info("atom content replaced", "conversation_id", conversation.id) },
		func(err error) { b.reportFailure(ctx, conversation, "change my atom description", err) },
	)
}

func (b *Bot) connectCommand(ctx context.Context, target *turn, _ textcommand.Args) {
	conversation := target.conversation
	b.say(ctx, conversation, connectText)
	b.withDebugAtom(ctx, conversation, "connect", func(atom ref.AtomID) {
		request := b.lifecycle.Connect(ctx, atom, conversation.counterpart, WelcomeText+" "+WelcomeHelpText)
		track(b, conversation, request).Then(
			func(created ref.ConversationID) {
				adopted := b.conversationFor(conversation.parent, created, conversation.counterpart)
				b.pacing.RecordSent(adopted.id, b.clock.Now())
				b.logger.Info("debug atom connected",
					"conversation_id", conversation.id,
					"atom", atom,
					"new_conversation_id", created,
				)
			},
			func(err error) { b.reportFailure(ctx, conversation, "connect the debug atom", err) },
		)
	})
}

func (b *Bot) deactivateCommand(ctx context.Context, target *turn, _ textcommand.Args) {
	conversation := target.conversation
	b.say(ctx, conversation, deactivateText)
	track(b, conversation, b.lifecycle.Deactivate(ctx, conversation.id)).Then(
		func(struct{}) { b.endConversation(conversation.id, "deactivated by command") },
		func(err error) { b.reportFailure(ctx, conversation, "deactivate this atom", err) },
	)
}

func (b *Bot) chattyCommand(ctx context.Context, target *turn, args textcommand.Args) {
	conversation := target.conversation
	value, ok := args.OneOf(1, "on", "off")
	if !ok {
		state := "off"
		if b.isChatty(conversation) {
			state = "on"
		}
		b.say(ctx, conversation, "Chatty mode is "+state+". Say 'chatty on' or 'chatty off' to change it.")
		return
	}
	b.setChatty(conversation, value == "on")
	if value == "on" {
		b.say(ctx, conversation, chattyOnText)
	} else {
		b.say(ctx, conversation, chattyOffText)
	}
}

func (b *Bot) cacheCommand(ctx context.Context, target *turn, args textcommand.Args) {
	conversation := target.conversation
	if b.cache == nil {
		b.say(ctx, conversation, "Sorry, I have no message cache to configure.")
		return
	}
	value, ok := args.OneOf(1, "eager", "lazy")
	if !ok {
		mode := "lazy"
		if b.cache.Eager() {
			mode = "eager"
		}
		b.say(ctx, conversation, "The message cache is "+mode+". Say 'cache eager' or 'cache lazy' to change it.")
		return
	}
	b.cache.SetEager(value == "eager")
	if value == "eager" {
		b.say(ctx, conversation, cacheEagerText)
	} else {
		b.say(ctx, conversation, cacheLazyText)
	}
}

// sendCommand schedules N counting messages, the first one interval
// from now and each following one interval later.
func (b *Bot) sendCommand(_ context.Context, target *turn, args textcommand.Args) {
	conversation := target.conversation
	count := min(args.Int(1, 1, 1, 9), len(countingTexts))
	now := b.clock.Now()
	for index := range count {
		text := countingTexts[index]
		at := now.Add(time.Duration(index+1) * b.timing.SendInterval)
		b.scheduler.Schedule(conversation.id, at, func() {
			b.say(conversation.ctx, conversation, text)
		})
	}
	b.logger.Debug("counting messages scheduled", "conversation_id", conversation.id, "count", count)
}

func (b *Bot) validateCommand(ctx context.Context, target *turn, _ textcommand.Args) {
	conversation := target.conversation
	b.say(ctx, conversation, "ok, I'll validate the connection"+crawlNotice)
	b.spawn(conversation, "validate", func(ctx context.Context) {
		result, ok := b.crawlConversation(ctx, conversation)
		if !ok {
			return
		}
		b.say(ctx, conversation, validationReport(conversation.id, result.Messages))
	})
}

// validationReport checks the crawled messages and summarizes them.
func validationReport(id ref.ConversationID, messages []convlog.Message) string {
	issues := convlog.Validate(messages)
	report := fmt.Sprintf("Connection %s is valid: %t.", id, len(issues) == 0)
	digest, size, err := convlog.Digest(messages)
	if err != nil {
		report += " I could not compute its digest: " + err.Error()
	} else {
		report += fmt.Sprintf(" It has %d messages, %s encoded, digest %s.",
			len(messages), humanize.Bytes(uint64(size)), digest)
	}
	for _, issue := range issues {
		report += "\n- " + issue.String()
	}
	return report
}

// injectCommand sends one message whose copies go into every other
// conversation the bot has with the same counterpart.
func (b *Bot) injectCommand(ctx context.Context, target *turn, _ textcommand.Args) {
	conversation := target.conversation
	b.say(ctx, conversation, injectText)
	others := slices.DeleteFunc(b.conversationsWith(conversation.counterpart), func(id ref.ConversationID) bool {
		return id == conversation.id
	})
	outbound := messaging.NewText(conversation.id, injectedText)
	outbound.InjectInto = others
	b.deliver(ctx, conversation, outbound)
	b.logger.Debug("injected message sent", "conversation_id", conversation.id, "targets", len(others))
}

func (b *Bot) isChatty(conversation *conversation) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return conversation.chatty
}

func (b *Bot) setChatty(conversation *conversation, chatty bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	conversation.chatty = chatty
}
