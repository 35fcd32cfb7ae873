// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugbot

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/messaging"
)

func TestNewLocalLifecycleRequiresSender(t *testing.T) {
	if _, err := NewLocalLifecycle(LocalLifecycleConfig{}); err == nil {
		t.Fatal("NewLocalLifecycle without sender succeeded")
	}
}

func TestLocalLifecycleHint(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	stranger := ref.MustParseAtomID("atom:stranger")
	if _, err := h.lifecycle.Hint(ctx, stranger, userAtom, AtomHint).Wait(ctx); err == nil {
		t.Error("hint from an unknown atom succeeded")
	}

	atom, err := h.lifecycle.CreateAtom(ctx, mainConversation).Wait(ctx)
	if err != nil {
		t.Fatalf("CreateAtom: %v", err)
	}
	if _, err := h.lifecycle.Hint(ctx, atom, userAtom, SocketHint).Wait(ctx); !errors.Is(err, ErrNoSuitableSockets) {
		t.Errorf("socket hint error = %v, want %v", err, ErrNoSuitableSockets)
	}
	kind, err := h.lifecycle.Hint(ctx, atom, userAtom, IncompatibleSocketHint).Wait(ctx)
	if err != nil {
		t.Fatalf("incompatible socket hint: %v", err)
	}
	if kind != IncompatibleSocketHint {
		t.Errorf("hint kind = %v, want %v", kind, IncompatibleSocketHint)
	}
	want := []string{"atom:debug-1 sent a incompatible SocketHintMessage to atom:alice"}
	if diff := cmp.Diff(want, h.noticeLines()); diff != "" {
		t.Errorf("notices mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalLifecycleConnectAndClose(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	atom, err := h.lifecycle.CreateAtom(ctx, mainConversation).Wait(ctx)
	if err != nil {
		t.Fatalf("CreateAtom: %v", err)
	}
	created, err := h.lifecycle.Connect(ctx, atom, userAtom, "knock knock").Wait(ctx)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if created != ref.MustParseConversationID("conn:new-1") {
		t.Errorf("created conversation = %s, want conn:new-1", created)
	}
	messages := h.log.Messages(created)
	if len(messages) != 1 || messages[0].Sender != atom || messages[0].Text != "knock knock" || messages[0].Act != convlog.Plain {
		t.Errorf("conversation messages = %+v, want the connect text from %s", messages, atom)
	}

	if _, err := h.lifecycle.Open(ctx, created, "welcome").Wait(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := h.lifecycle.Close(ctx, created, "goodbye").Wait(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if diff := cmp.Diff([]string{"welcome", "goodbye"}, h.botTexts(created)); diff != "" {
		t.Errorf("bot texts mismatch (-want +got):\n%s", diff)
	}
	if _, err := h.lifecycle.Open(ctx, created, "again").Wait(ctx); !messaging.IsDeliveryError(err, messaging.ErrCodeClosed) {
		t.Errorf("Open after Close error = %v, want closed", err)
	}
}

func TestLocalLifecycleDeactivateClosesConversation(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	if _, err := h.lifecycle.Deactivate(ctx, mainConversation).Wait(ctx); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := h.sender.Send(ctx, messaging.NewText(mainConversation, "anyone?")); !messaging.IsDeliveryError(err, messaging.ErrCodeClosed) {
		t.Errorf("Send after Deactivate error = %v, want closed", err)
	}
	if _, err := h.lifecycle.ReplaceContent(ctx, mainConversation).Wait(ctx); err != nil {
		t.Fatalf("ReplaceContent: %v", err)
	}
	want := []string{
		"atom behind conversation conn:1 deactivated",
		"atom description behind conversation conn:1 replaced",
	}
	if diff := cmp.Diff(want, h.noticeLines()); diff != "" {
		t.Errorf("notices mismatch (-want +got):\n%s", diff)
	}
}
