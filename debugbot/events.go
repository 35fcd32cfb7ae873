// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugbot

import (
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
)

// Event is something the transport tells the bot about. The set of
// events is closed.
type Event interface {
	eventName() string
}

// MessageReceived carries a message the counterpart sent. The
// transport has already stored it, so crawls include it.
type MessageReceived struct {
	Message convlog.Message
}

// ConnectRequested is a counterpart asking to open a conversation.
// Text is the request's message, which may contain the handshake
// keywords "ignore", "deny" and "wait N".
type ConnectRequested struct {
	Conversation ref.ConversationID
	From         ref.AtomID
	Text         string
	// AlreadyConnected is set when the conversation is open already,
	// for example because the bot's own debug atom initiated it.
	AlreadyConnected bool
}

// Opened reports that a conversation the bot asked for was accepted.
type Opened struct {
	Conversation ref.ConversationID
	Counterpart  ref.AtomID
}

// Closed reports that a conversation was closed by either side.
type Closed struct {
	Conversation ref.ConversationID
}

// AtomDeactivated reports that a counterpart atom went away. Every
// conversation with it ends.
type AtomDeactivated struct {
	Atom ref.AtomID
}

func (MessageReceived) eventName() string  { return "message_received" }
func (ConnectRequested) eventName() string { return "connect_requested" }
func (Opened) eventName() string           { return "opened" }
func (Closed) eventName() string           { return "closed" }
func (AtomDeactivated) eventName() string  { return "atom_deactivated" }
