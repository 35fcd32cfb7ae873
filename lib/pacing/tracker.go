// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pacing

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/bureau-foundation/debugbot/lib/ref"
)

// stripeCount is the number of independently locked partitions.
const stripeCount = 64

// Record is the timing state of one conversation. A zero time means
// "never".
type Record struct {
	LastReceived time.Time
	LastSent     time.Time
}

// Tracker owns the Records of all conversations. Records are created
// on first use and never removed except by Forget.
type Tracker struct {
	stripes [stripeCount]stripe
}

type stripe struct {
	mu      sync.Mutex
	records map[ref.ConversationID]*Record
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	tracker := &Tracker{}
	for index := range tracker.stripes {
		tracker.stripes[index].records = make(map[ref.ConversationID]*Record)
	}
	return tracker
}

func (t *Tracker) stripeFor(conversation ref.ConversationID) *stripe {
	return &t.stripes[xxhash.Sum64String(conversation.String())%stripeCount]
}

// update runs fn on the conversation's record under its stripe lock,
// creating the record if needed.
func (t *Tracker) update(conversation ref.ConversationID, fn func(*Record)) {
	stripe := t.stripeFor(conversation)
	stripe.mu.Lock()
	defer stripe.mu.Unlock()
	record := stripe.records[conversation]
	if record == nil {
		record = &Record{}
		stripe.records[conversation] = record
	}
	fn(record)
}

// RecordReceived notes that the counterpart wrote at at. Earlier
// times than the one held are ignored.
func (t *Tracker) RecordReceived(conversation ref.ConversationID, at time.Time) {
	t.update(conversation, func(record *Record) {
		if at.After(record.LastReceived) {
			record.LastReceived = at
		}
	})
}

// RecordSent notes that the bot wrote at at. Earlier times than the
// one held are ignored.
func (t *Tracker) RecordSent(conversation ref.ConversationID, at time.Time) {
	t.update(conversation, func(record *Record) {
		if at.After(record.LastSent) {
			record.LastSent = at
		}
	})
}

// Record returns a copy of the conversation's record. The second
// result is false when nothing was ever recorded.
func (t *Tracker) Record(conversation ref.ConversationID) (Record, bool) {
	stripe := t.stripeFor(conversation)
	stripe.mu.Lock()
	defer stripe.mu.Unlock()
	if record := stripe.records[conversation]; record != nil {
		return *record, true
	}
	return Record{}, false
}

// Period classifies the conversation at now.
func (t *Tracker) Period(conversation ref.ConversationID, now time.Time) Period {
	record, _ := t.Record(conversation)
	return Classify(record.LastReceived, now)
}

// MayProactivelySend reports whether the bot may send an unprompted
// message at now. The bot must have sent at least once (it only keeps
// a conversation going, it never opens one), and at least the current
// period's minimum pause must have passed since.
func (t *Tracker) MayProactivelySend(conversation ref.ConversationID, now time.Time) bool {
	record, _ := t.Record(conversation)
	if record.LastSent.IsZero() {
		return false
	}
	period := Classify(record.LastReceived, now)
	return now.Sub(record.LastSent) >= period.MinimumPause()
}

// Forget drops the conversation's record.
func (t *Tracker) Forget(conversation ref.ConversationID) {
	stripe := t.stripeFor(conversation)
	stripe.mu.Lock()
	defer stripe.mu.Unlock()
	delete(stripe.records, conversation)
}
