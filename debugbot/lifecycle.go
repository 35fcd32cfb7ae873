// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugbot

import (
	"context"
	"errors"

	"github.com/bureau-foundation/debugbot/lib/command"
	"github.com/bureau-foundation/debugbot/lib/ref"
)

// HintKind selects what a debug atom hints at.
type HintKind int

const (
	// AtomHint points the recipient at the debug atom itself.
	AtomHint HintKind = iota
	// SocketHint pairs the default chat sockets of both atoms.
	SocketHint
	// RandomSocketHint pairs a random compatible socket combination.
	RandomSocketHint
	// IncompatibleSocketHint pairs sockets that cannot connect.
	IncompatibleSocketHint
)

var hintKindNames = [...]string{
	AtomHint:               "AtomHintMessage",
	SocketHint:             "SocketHintMessage",
	RandomSocketHint:       "random SocketHintMessage",
	IncompatibleSocketHint: "incompatible SocketHintMessage",
}

func (k HintKind) String() string {
	if k < 0 || int(k) >= len(hintKindNames) {
		return "unknown hint"
	}
	return hintKindNames[k]
}

// ErrNoSuitableSockets is returned by [Lifecycle.Hint] when the atoms
// have no socket pair of the requested kind. The bot then falls back
// to the next kind.
var ErrNoSuitableSockets = errors.New("no suitable sockets")

// Lifecycle manages atoms and conversations on the bot's behalf. Each
// operation returns a future that settles once; the bot cancels the
// futures of a conversation when it ends.
type Lifecycle interface {
	// CreateAtom creates a debug atom on behalf of the conversation
	// origin.
	CreateAtom(ctx context.Context, origin ref.ConversationID) *command.Future[ref.AtomID]

	// Hint makes atom send a hint of kind to recipient. It resolves
	// with the kind actually sent.
	Hint(ctx context.Context, atom, recipient ref.AtomID, kind HintKind) *command.Future[HintKind]

	// Connect makes atom request a conversation with recipient, with
	// text as the request message. It resolves with the new
	// conversation.
	Connect(ctx context.Context, atom, recipient ref.AtomID, text string) *command.Future[ref.ConversationID]

	// Open accepts a requested conversation with text as the reply.
	Open(ctx context.Context, conversation ref.ConversationID, text string) *command.Future[struct{}]

	// Close closes a conversation, sending text first when it is not
	// empty.
	Close(ctx context.Context, conversation ref.ConversationID, text string) *command.Future[struct{}]

	// Deactivate deactivates the bot's atom behind conversation, which
	// closes the conversation.
	Deactivate(ctx context.Context, conversation ref.ConversationID) *command.Future[struct{}]

	// ReplaceContent rewrites the description of the bot's atom behind
	// conversation.
	ReplaceContent(ctx context.Context, conversation ref.ConversationID) *command.Future[struct{}]
}
