// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convlog

import (
	"fmt"
	"sync"

	"github.com/bureau-foundation/debugbot/lib/ref"
)

// Log is an in-memory, append-only message set grouped by
// conversation. Appending an id that is already present is a no-op:
// messages are immutable, so the first copy wins.
//
// Log is safe for concurrent use.
type Log struct {
	mu            sync.RWMutex
	conversations map[ref.ConversationID]*conversationLog
}

type conversationLog struct {
	messages []Message
	index    map[ref.MessageID]int
}

// NewLog returns an empty Log.
func NewLog() *Log {
	return &Log{conversations: make(map[ref.ConversationID]*conversationLog)}
}

// Append adds message to its conversation. It reports whether the
// message was new. Invalid messages are rejected with an error.
func (l *Log) Append(message Message) (bool, error) {
	if err := message.Validate(); err != nil {
		return false, fmt.Errorf("appending to log: %w", err)
	}
	if message.Conversation.IsZero() {
		return false, fmt.Errorf("appending to log: message %s has no conversation", message.ID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	conversation := l.conversations[message.Conversation]
	if conversation == nil {
		conversation = &conversationLog{index: make(map[ref.MessageID]int)}
		l.conversations[message.Conversation] = conversation
	}
	if _, exists := conversation.index[message.ID]; exists {
		return false, nil
	}
	conversation.index[message.ID] = len(conversation.messages)
	conversation.messages = append(conversation.messages, message.Clone())
	return true, nil
}

// Messages returns a copy of every message in the conversation, in
// append order. An unknown conversation yields nil.
func (l *Log) Messages(conversation ref.ConversationID) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry := l.conversations[conversation]
	if entry == nil {
		return nil
	}
	messages := make([]Message, len(entry.messages))
	for index, message := range entry.messages {
		messages[index] = message.Clone()
	}
	return messages
}

// Get returns one message by id.
func (l *Log) Get(conversation ref.ConversationID, id ref.MessageID) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry := l.conversations[conversation]
	if entry == nil {
		return Message{}, false
	}
	position, ok := entry.index[id]
	if !ok {
		return Message{}, false
	}
	return entry.messages[position].Clone(), true
}

// Len returns the number of messages held for the conversation.
func (l *Log) Len(conversation ref.ConversationID) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if entry := l.conversations[conversation]; entry != nil {
		return len(entry.messages)
	}
	return 0
}

// Forget drops everything held for the conversation.
func (l *Log) Forget(conversation ref.ConversationID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.conversations, conversation)
}
