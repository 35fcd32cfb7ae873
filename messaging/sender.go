// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/debugbot/lib/clock"
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
)

// Sender delivers outbound messages. Send returns the id of the
// message delivered into o.Conversation.
type Sender interface {
	Send(ctx context.Context, o Outbound) (ref.MessageID, error)
}

// Sink stores delivered messages. *logstore.Store satisfies it; wrap
// a *convlog.Log with [LogSink].
type Sink interface {
	Append(ctx context.Context, message convlog.Message) (bool, error)
}

type logSink struct{ log *convlog.Log }

func (s logSink) Append(_ context.Context, message convlog.Message) (bool, error) {
	return s.log.Append(message)
}

// LogSink adapts an in-memory log to [Sink].
func LogSink(log *convlog.Log) Sink { return logSink{log: log} }

// LogSenderConfig configures a [LogSender].
type LogSenderConfig struct {
	// Atom is the sender of every delivered message.
	Atom ref.AtomID
	// Sink receives every delivered message. Required.
	Sink Sink
	// Clock stamps delivered messages. Defaults to the wall clock.
	Clock clock.Clock
	// NewID mints message ids. Defaults to random UUIDs.
	NewID func() ref.MessageID
	// Logger receives delivery records. Nil discards.
	Logger *slog.Logger
}

// LogSender delivers messages by appending them to a [Sink] and
// notifying observers. Timestamps it assigns strictly increase, so
// its own messages keep their send order under [convlog.Compare].
type LogSender struct {
	atom   ref.AtomID
	sink   Sink
	clock  clock.Clock
	newID  func() ref.MessageID
	logger *slog.Logger

	mu        sync.Mutex
	last      time.Time
	closed    map[ref.ConversationID]bool
	observers []func(convlog.Message)
}

// NewLogSender returns a LogSender for config.
func NewLogSender(config LogSenderConfig) (*LogSender, error) {
	if config.Atom.IsZero() {
		return nil, fmt.Errorf("log sender: atom is required")
	}
	if config.Sink == nil {
		return nil, fmt.Errorf("log sender: sink is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.NewID == nil {
		config.NewID = func() ref.MessageID { return ref.MustParseMessageID("msg-" + uuid.NewString()) }
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &LogSender{
		atom:   config.Atom,
		sink:   config.Sink,
		clock:  config.Clock,
		newID:  config.NewID,
		logger: config.Logger,
		closed: make(map[ref.ConversationID]bool),
	}, nil
}

// Observe registers fn to receive every delivered message, including
// injected copies, after it reached the sink. Observers run on the
// sending goroutine.
func (s *LogSender) Observe(fn func(convlog.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// CloseConversation makes later sends into conversation fail with
// [ErrCodeClosed].
func (s *LogSender) CloseConversation(conversation ref.ConversationID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed[conversation] = true
}

// Send delivers o as the configured atom.
func (s *LogSender) Send(ctx context.Context, o Outbound) (ref.MessageID, error) {
	message, err := s.Deliver(ctx, s.atom, o)
	if err != nil {
		return ref.MessageID{}, err
	}
	return message.ID, nil
}

// Deliver delivers o as from, and a plain copy into each of
// o.InjectInto. Closed injection targets are skipped. The console
// transport delivers the human side of a conversation through the
// same LogSender so both sides share one timeline.
func (s *LogSender) Deliver(ctx context.Context, from ref.AtomID, o Outbound) (convlog.Message, error) {
	if err := ctx.Err(); err != nil {
		return convlog.Message{}, &DeliveryError{Code: ErrCodeClosed, Conversation: o.Conversation, Message: "context done", Err: err}
	}

	s.mu.Lock()
	if s.closed[o.Conversation] {
		s.mu.Unlock()
		return convlog.Message{}, &DeliveryError{Code: ErrCodeClosed, Conversation: o.Conversation, Message: "conversation is closed"}
	}
	primary, err := Materialize(o, s.newID(), from, s.stampLocked())
	if err != nil {
		s.mu.Unlock()
		return convlog.Message{}, &DeliveryError{Code: ErrCodeInvalid, Conversation: o.Conversation, Message: "cannot build message", Err: err}
	}
	deliveries := []convlog.Message{primary}
	for _, target := range o.InjectInto {
		if target == o.Conversation || s.closed[target] {
			continue
		}
		deliveries = append(deliveries, convlog.Message{
			ID:           s.newID(),
			Conversation: target,
			Sender:       from,
			Timestamp:    s.stampLocked(),
			Act:          convlog.Plain,
			Text:         o.Text,
		})
	}
	observers := s.observers
	s.mu.Unlock()

	for _, message := range deliveries {
		if _, err := s.sink.Append(ctx, message); err != nil {
			return convlog.Message{}, &DeliveryError{Code: ErrCodeStoreFailure, Conversation: message.Conversation, Message: "storing message", Err: err}
		}
		s.logger.Debug("message delivered",
			"conversation_id", message.Conversation,
			"message_id", message.ID,
			"sender", message.Sender,
			"act", message.Act,
			"effects", len(message.Effects),
		)
		for _, observer := range observers {
			observer(message)
		}
	}
	return primary, nil
}

func (s *LogSender) stampLocked() time.Time {
	now := s.clock.Now()
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond)
	}
	s.last = now
	return now
}
