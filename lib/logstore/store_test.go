// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/lib/sqlitepool"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func testMessage(conversation, id string, second int, act convlog.SpeechAct, effects ...string) convlog.Message {
	message := convlog.Message{
		ID:           ref.MustParseMessageID(id),
		Conversation: ref.MustParseConversationID(conversation),
		Sender:       ref.MustParseAtomID("atom:user"),
		Timestamp:    epoch.Add(time.Duration(second) * time.Second),
		Act:          act,
		Text:         "body of " + id,
	}
	for _, effect := range effects {
		message.Effects = append(message.Effects, ref.MustParseMessageID(effect))
	}
	return message
}

func TestAppendAndReadBackInOrder(t *testing.T) {
	store := openStore(t, sqlitepool.Memory)
	ctx := context.Background()

	for _, message := range []convlog.Message{
		testMessage("conn:1", "b", 5, convlog.Plain),
		testMessage("conn:1", "a", 5, convlog.Proposes),
		testMessage("conn:1", "c", 1, convlog.Accepts, "a"),
		testMessage("conn:2", "x", 0, convlog.Plain),
	} {
		inserted, err := store.Append(ctx, message)
		if err != nil {
			t.Fatalf("Append(%s): %v", message.ID, err)
		}
		if !inserted {
			t.Errorf("Append(%s) = false, want true", message.ID)
		}
	}

	messages, err := store.Messages(ctx, ref.MustParseConversationID("conn:1"))
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	var ids []string
	for _, message := range messages {
		ids = append(ids, message.ID.String())
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Errorf("order = %v, want [c a b]", ids)
	}
	if messages[0].Act != convlog.Accepts || messages[0].Effects[0].String() != "a" {
		t.Errorf("first message = %+v, want accepts of a", messages[0])
	}
	if !messages[0].Timestamp.Equal(epoch.Add(time.Second)) {
		t.Errorf("Timestamp = %v, want %v", messages[0].Timestamp, epoch.Add(time.Second))
	}
}

func TestWalkStopsAtVisitError(t *testing.T) {
	store := openStore(t, sqlitepool.Memory)
	ctx := context.Background()
	for second, id := range []string{"a", "b", "c"} {
		if _, err := store.Append(ctx, testMessage("conn:1", id, second, convlog.Plain)); err != nil {
			t.Fatalf("Append(%s): %v", id, err)
		}
	}

	enough := errors.New("enough")
	var visited []string
	err := store.Walk(ctx, ref.MustParseConversationID("conn:1"), func(message convlog.Message) error {
		visited = append(visited, message.ID.String())
		if len(visited) == 2 {
			return enough
		}
		return nil
	})
	if !errors.Is(err, enough) {
		t.Errorf("Walk error = %v, want %v", err, enough)
	}
	if len(visited) != 2 || visited[0] != "a" || visited[1] != "b" {
		t.Errorf("visited = %v, want [a b]", visited)
	}
}

func TestAppendDuplicateIsIgnored(t *testing.T) {
	store := openStore(t, sqlitepool.Memory)
	ctx := context.Background()
	message := testMessage("conn:1", "m", 0, convlog.Plain)

	if _, err := store.Append(ctx, message); err != nil {
		t.Fatal(err)
	}
	message.Text = "rewritten"
	inserted, err := store.Append(ctx, message)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("second Append of the same id = true, want false")
	}
	count, err := store.Count(ctx, message.Conversation)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestAppendAllIsAtomic(t *testing.T) {
	store := openStore(t, sqlitepool.Memory)
	ctx := context.Background()

	invalid := testMessage("conn:1", "bad", 2, convlog.Plain)
	invalid.Sender = ref.AtomID{}
	_, err := store.AppendAll(ctx, []convlog.Message{
		testMessage("conn:1", "good", 1, convlog.Plain),
		invalid,
	})
	if err == nil {
		t.Fatal("AppendAll with an invalid message succeeded")
	}
	count, err := store.Count(ctx, ref.MustParseConversationID("conn:1"))
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Count after failed batch = %d, want 0", count)
	}

	added, err := store.AppendAll(ctx, []convlog.Message{
		testMessage("conn:1", "one", 1, convlog.Plain),
		testMessage("conn:1", "two", 2, convlog.Plain),
		testMessage("conn:1", "one", 1, convlog.Plain),
	})
	if err != nil {
		t.Fatalf("AppendAll: %v", err)
	}
	if added != 2 {
		t.Errorf("AppendAll added %d, want 2", added)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	ctx := context.Background()

	first, err := Open(Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Append(ctx, testMessage("conn:9", "m1", 0, convlog.Claims)); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second := openStore(t, path)
	conversations, err := second.Conversations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(conversations) != 1 || conversations[0].String() != "conn:9" {
		t.Errorf("Conversations = %v, want [conn:9]", conversations)
	}
	messages, err := second.Messages(ctx, conversations[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 1 || messages[0].Act != convlog.Claims {
		t.Errorf("Messages = %+v, want one claims message", messages)
	}
}
