// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"fmt"
	"slices"
	"time"

	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
)

// Reference is one speech act the outbound message performs on an
// earlier message.
type Reference struct {
	Act    convlog.SpeechAct
	Target ref.MessageID
}

// Outbound is a message the bot wants delivered.
type Outbound struct {
	Conversation ref.ConversationID
	Text         string
	References   []Reference
	// InjectInto lists further conversations that receive a plain
	// copy of the text.
	InjectInto []ref.ConversationID
}

// NewText returns an Outbound with text and no references.
func NewText(conversation ref.ConversationID, text string) Outbound {
	return Outbound{Conversation: conversation, Text: text}
}

// With returns a copy of o that additionally performs act on each of
// targets.
func (o Outbound) With(act convlog.SpeechAct, targets ...ref.MessageID) Outbound {
	o.References = slices.Clone(o.References)
	for _, target := range targets {
		o.References = append(o.References, Reference{Act: act, Target: target})
	}
	return o
}

// Act returns the speech act of the message o becomes: the act shared
// by all references, or Plain without references.
func (o Outbound) Act() (convlog.SpeechAct, error) {
	if len(o.References) == 0 {
		return convlog.Plain, nil
	}
	act := o.References[0].Act
	for _, reference := range o.References[1:] {
		if reference.Act != act {
			return 0, fmt.Errorf("outbound message mixes %s and %s references", act, reference.Act)
		}
	}
	if act == convlog.Plain {
		return 0, fmt.Errorf("outbound message has plain references")
	}
	return act, nil
}

// Targets returns the referenced message ids in order.
func (o Outbound) Targets() []ref.MessageID {
	targets := make([]ref.MessageID, 0, len(o.References))
	for _, reference := range o.References {
		targets = append(targets, reference.Target)
	}
	return targets
}

// Materialize builds the log message o becomes when sender delivers it
// at the given time with the given id.
func Materialize(o Outbound, id ref.MessageID, sender ref.AtomID, at time.Time) (convlog.Message, error) {
	if o.Conversation.IsZero() {
		return convlog.Message{}, fmt.Errorf("outbound message has no conversation")
	}
	act, err := o.Act()
	if err != nil {
		return convlog.Message{}, err
	}
	message := convlog.Message{
		ID:           id,
		Conversation: o.Conversation,
		Sender:       sender,
		Timestamp:    at,
		Act:          act,
		Text:         o.Text,
	}
	if len(o.References) > 0 {
		message.Effects = o.Targets()
	}
	if err := message.Validate(); err != nil {
		return convlog.Message{}, err
	}
	return message, nil
}
