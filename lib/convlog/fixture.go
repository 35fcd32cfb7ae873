// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convlog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/debugbot/lib/ref"
)

// Fixture is the on-disk form of a seeded conversation: a JSON
// document that may contain comments and trailing commas.
//
//	{
//	  // the bot proposed, the user accepted
//	  "conversation": "conn:demo",
//	  "messages": [
//	    {"id": "P1", "sender": "atom:bot", "timestamp": "2026-01-01T00:00:00Z",
//	     "act": "proposes", "text": "let's meet at noon"},
//	  ],
//	}
//
// Messages without a conversation inherit the fixture's.
type Fixture struct {
	Conversation ref.ConversationID `json:"conversation"`
	Messages     []Message          `json:"messages"`
}

// ParseFixture decodes and validates a fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var fixture Fixture
	if err := json.Unmarshal(jsonc.ToJSON(data), &fixture); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	for index := range fixture.Messages {
		message := &fixture.Messages[index]
		if message.Conversation.IsZero() {
			message.Conversation = fixture.Conversation
		}
		if err := message.Validate(); err != nil {
			return nil, fmt.Errorf("fixture message %d: %w", index, err)
		}
		if message.Conversation.IsZero() {
			return nil, fmt.Errorf("fixture message %s has no conversation", message.ID)
		}
	}
	return &fixture, nil
}

// LoadFixture reads and parses the fixture at path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	fixture, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fixture, nil
}
