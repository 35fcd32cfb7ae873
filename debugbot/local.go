// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugbot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/debugbot/lib/command"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/messaging"
)

// LocalLifecycleConfig configures a [LocalLifecycle].
type LocalLifecycleConfig struct {
	// Sender carries the messages lifecycle operations produce.
	Sender *messaging.LogSender

	// Notify receives a line for every operation that has no message
	// of its own, such as hints. Optional.
	Notify func(text string)

	// DefaultSockets makes socket hints between default sockets
	// succeed. Without it they fail with [ErrNoSuitableSockets].
	DefaultSockets bool

	// NewAtom and NewConversation mint identifiers. They default to
	// random UUID based ids.
	NewAtom         func() ref.AtomID
	NewConversation func() ref.ConversationID

	Logger *slog.Logger
}

// LocalLifecycle implements [Lifecycle] in process. Debug atoms exist
// only as ids; conversations exist as messages in the sender's sink.
// Every operation settles before it returns.
type LocalLifecycle struct {
	sender          *messaging.LogSender
	notify          func(string)
	defaultSockets  bool
	newAtom         func() ref.AtomID
	newConversation func() ref.ConversationID
	logger          *slog.Logger

	mu    sync.Mutex
	atoms map[ref.AtomID]bool
}

// NewLocalLifecycle returns a LocalLifecycle for config.
func NewLocalLifecycle(config LocalLifecycleConfig) (*LocalLifecycle, error) {
	if config.Sender == nil {
		return nil, fmt.Errorf("local lifecycle: sender is required")
	}
	if config.Notify == nil {
		config.Notify = func(string) {}
	}
	if config.NewAtom == nil {
		config.NewAtom = func() ref.AtomID { return ref.MustParseAtomID("atom:debug-" + uuid.NewString()) }
	}
	if config.NewConversation == nil {
		config.NewConversation = func() ref.ConversationID { return ref.MustParseConversationID("conn:" + uuid.NewString()) }
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &LocalLifecycle{
		sender:          config.Sender,
		notify:          config.Notify,
		defaultSockets:  config.DefaultSockets,
		newAtom:         config.NewAtom,
		newConversation: config.NewConversation,
		logger:          config.Logger,
		atoms:           make(map[ref.AtomID]bool),
	}, nil
}

// CreateAtom mints a debug atom.
func (l *LocalLifecycle) CreateAtom(_ context.Context, origin ref.ConversationID) *command.Future[ref.AtomID] {
	atom := l.newAtom()
	l.mu.Lock()
	l.atoms[atom] = true
	l.mu.Unlock()
	l.logger.Info("debug atom created", "atom", atom, "conversation_id", origin)
	return command.Resolved(atom)
}

func (l *LocalLifecycle) known(atom ref.AtomID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.atoms[atom]
}

// Hint reports the hint through Notify.
func (l *LocalLifecycle) Hint(_ context.Context, atom, recipient ref.AtomID, kind HintKind) *command.Future[HintKind] {
	if !l.known(atom) {
		return command.Failed[HintKind](fmt.Errorf("hint from unknown atom %s", atom))
	}
	if kind == SocketHint && !l.defaultSockets {
		return command.Failed[HintKind](fmt.Errorf("socket hint from %s: %w", atom, ErrNoSuitableSockets))
	}
	l.notify(fmt.Sprintf("%s sent a %s to %s", atom, kind, recipient))
	return command.Resolved(kind)
}

// Connect starts a new conversation whose first message is text from
// atom.
func (l *LocalLifecycle) Connect(ctx context.Context, atom, recipient ref.AtomID, text string) *command.Future[ref.ConversationID] {
	if !l.known(atom) {
		return command.Failed[ref.ConversationID](fmt.Errorf("connect from unknown atom %s", atom))
	}
	conversation := l.newConversation()
	if _, err := l.sender.Deliver(ctx, atom, messaging.NewText(conversation, text)); err != nil {
		return command.Failed[ref.ConversationID](fmt.Errorf("connecting %s to %s: %w", atom, recipient, err))
	}
	l.notify(fmt.Sprintf("%s requested conversation %s with %s", atom, conversation, recipient))
	return command.Resolved(conversation)
}

// Open sends text into the conversation.
func (l *LocalLifecycle) Open(ctx context.Context, conversation ref.ConversationID, text string) *command.Future[struct{}] {
	if _, err := l.sender.Send(ctx, messaging.NewText(conversation, text)); err != nil {
		return command.Failed[struct{}](fmt.Errorf("opening %s: %w", conversation, err))
	}
	return command.Resolved(struct{}{})
}

// Close sends text, when given, and closes the conversation for
// further sends.
func (l *LocalLifecycle) Close(ctx context.Context, conversation ref.ConversationID, text string) *command.Future[struct{}] {
	if text != "" {
		if _, err := l.sender.Send(ctx, messaging.NewText(conversation, text)); err != nil {
			return command.Failed[struct{}](fmt.Errorf("closing %s: %w", conversation, err))
		}
	}
	l.sender.CloseConversation(conversation)
	l.notify(fmt.Sprintf("conversation %s closed", conversation))
	return command.Resolved(struct{}{})
}

// Deactivate closes the conversation.
func (l *LocalLifecycle) Deactivate(_ context.Context, conversation ref.ConversationID) *command.Future[struct{}] {
	l.sender.CloseConversation(conversation)
	l.notify(fmt.Sprintf("atom behind conversation %s deactivated", conversation))
	return command.Resolved(struct{}{})
}

// ReplaceContent reports the change through Notify.
func (l *LocalLifecycle) ReplaceContent(_ context.Context, conversation ref.ConversationID) *command.Future[struct{}] {
	l.notify(fmt.Sprintf("atom description behind conversation %s replaced", conversation))
	return command.Resolved(struct{}{})
}
