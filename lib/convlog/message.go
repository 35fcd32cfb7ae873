// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convlog

import (
	"fmt"
	"slices"
	"time"

	"github.com/bureau-foundation/debugbot/lib/ref"
)

// SpeechAct classifies what a message does to the negotiation.
type SpeechAct int

const (
	// Plain messages carry text and take part in no negotiation.
	Plain SpeechAct = iota
	// Proposes puts its effects (or itself) forward as clauses.
	Proposes
	// ProposesToCancel asks to cancel the agreements in its effects.
	ProposesToCancel
	// Accepts accepts the proposals or claims in its effects.
	Accepts
	// Rejects rejects the proposals or claims in its effects.
	Rejects
	// Retracts withdraws the messages in its effects.
	Retracts
	// Claims asserts its effects (or itself) as clauses.
	Claims
)

var speechActNames = [...]string{
	Plain:            "plain",
	Proposes:         "proposes",
	ProposesToCancel: "proposes_to_cancel",
	Accepts:          "accepts",
	Rejects:          "rejects",
	Retracts:         "retracts",
	Claims:           "claims",
}

func (a SpeechAct) String() string {
	if a < 0 || int(a) >= len(speechActNames) {
		return fmt.Sprintf("speech_act(%d)", int(a))
	}
	return speechActNames[a]
}

// ParseSpeechAct accepts the names produced by String.
func ParseSpeechAct(name string) (SpeechAct, error) {
	for index, candidate := range speechActNames {
		if candidate == name {
			return SpeechAct(index), nil
		}
	}
	return Plain, fmt.Errorf("unknown speech act %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (a SpeechAct) MarshalText() ([]byte, error) {
	if a < 0 || int(a) >= len(speechActNames) {
		return nil, fmt.Errorf("cannot marshal %s", a)
	}
	return []byte(speechActNames[a]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input
// decodes as Plain.
func (a *SpeechAct) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*a = Plain
		return nil
	}
	parsed, err := ParseSpeechAct(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IsProposal reports whether messages of this act can be accepted,
// rejected, or left pending: Proposes, ProposesToCancel and Claims.
func (a SpeechAct) IsProposal() bool {
	return a == Proposes || a == ProposesToCancel || a == Claims
}

// IsResponse reports whether messages of this act resolve other
// messages: Accepts, Rejects and Retracts.
func (a SpeechAct) IsResponse() bool {
	return a == Accepts || a == Rejects || a == Retracts
}

// Message is one entry in a conversation log.
type Message struct {
	ID           ref.MessageID      `json:"id"`
	Conversation ref.ConversationID `json:"conversation"`
	Sender       ref.AtomID         `json:"sender"`
	// Timestamp is the sender's approximate send time. Two messages
	// may share a timestamp.
	Timestamp time.Time       `json:"timestamp"`
	Act       SpeechAct       `json:"act"`
	Effects   []ref.MessageID `json:"effects,omitempty"`
	// Text is the human-readable body. Empty means the message has no
	// text content.
	Text string `json:"text,omitempty"`
}

// HasText reports whether the message carries a text body.
func (m Message) HasText() bool { return m.Text != "" }

// Clone returns a copy that shares no memory with m.
func (m Message) Clone() Message {
	m.Effects = slices.Clone(m.Effects)
	return m
}

// Validate checks the fields every ingested message must have.
func (m Message) Validate() error {
	if m.ID.IsZero() {
		return fmt.Errorf("message has no id")
	}
	if m.Sender.IsZero() {
		return fmt.Errorf("message %s has no sender", m.ID)
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("message %s has no timestamp", m.ID)
	}
	if m.Act < Plain || m.Act > Claims {
		return fmt.Errorf("message %s has invalid speech act %d", m.ID, int(m.Act))
	}
	return nil
}

// Compare orders messages by timestamp, then by id. It is the single
// total order used wherever the bot needs "latest" or "first".
func Compare(a, b Message) int {
	if compared := a.Timestamp.Compare(b.Timestamp); compared != 0 {
		return compared
	}
	return a.ID.Compare(b.ID)
}

// Sorted returns a copy of messages in ascending Compare order.
func Sorted(messages []Message) []Message {
	sorted := slices.Clone(messages)
	slices.SortStableFunc(sorted, Compare)
	return sorted
}

// Before reports whether a sorts strictly before b.
func Before(a, b Message) bool { return Compare(a, b) < 0 }
