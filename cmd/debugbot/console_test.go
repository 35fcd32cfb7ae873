// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/debugbot/debugbot"
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/lib/testutil"
	"github.com/bureau-foundation/debugbot/messaging"
)

func newTestConsole(t *testing.T) (*console, chan debugbot.Event, *bytes.Buffer) {
	t.Helper()
	sender, err := messaging.NewLogSender(messaging.LogSenderConfig{
		Atom: ref.MustParseAtomID("atom:debugbot"),
		Sink: messaging.LogSink(convlog.NewLog()),
	})
	if err != nil {
		t.Fatalf("NewLogSender: %v", err)
	}
	events := make(chan debugbot.Event, 8)
	var out bytes.Buffer
	return &console{
		sender:          sender,
		user:            consoleUser,
		out:             &out,
		events:          events,
		newConversation: func() ref.ConversationID { return ref.MustParseConversationID("conn:requested") },
		logger:          slog.New(slog.DiscardHandler),
		current:         defaultConversation,
		known:           []ref.ConversationID{defaultConversation},
	}, events, &out
}

func TestConsoleTextBecomesMessage(t *testing.T) {
	terminal, events, _ := newTestConsole(t)
	if quit, err := terminal.handleLine(t.Context(), "  propose my 2  "); quit || err != nil {
		t.Fatalf("handleLine = %t, %v", quit, err)
	}

	event := testutil.RequireReceive(t, events, 5*time.Second, "message event")
	received, ok := event.(debugbot.MessageReceived)
	if !ok {
		t.Fatalf("event = %T, want MessageReceived", event)
	}
	if received.Message.Text != "propose my 2" || received.Message.Sender != consoleUser {
		t.Errorf("message = %+v", received.Message)
	}
	if received.Message.Conversation != defaultConversation {
		t.Errorf("conversation = %s, want %s", received.Message.Conversation, defaultConversation)
	}
}

func TestConsoleRequestAndSwitch(t *testing.T) {
	terminal, events, out := newTestConsole(t)
	ctx := t.Context()

	if _, err := terminal.handleLine(ctx, "/request wait 5"); err != nil {
		t.Fatalf("/request: %v", err)
	}
	want := debugbot.ConnectRequested{
		Conversation: ref.MustParseConversationID("conn:requested"),
		From:         consoleUser,
		Text:         "wait 5",
	}
	got := testutil.RequireReceive(t, events, 5*time.Second, "request event")
	if diff := cmp.Diff(debugbot.Event(want), got, testutil.RefOptions); diff != "" {
		t.Errorf("request event mismatch (-want +got):\n%s", diff)
	}
	if terminal.current != want.Conversation {
		t.Errorf("current = %s, want the requested conversation", terminal.current)
	}

	if _, err := terminal.handleLine(ctx, "/switch conn:console"); err != nil {
		t.Fatalf("/switch: %v", err)
	}
	out.Reset()
	if _, err := terminal.handleLine(ctx, "/list"); err != nil {
		t.Fatalf("/list: %v", err)
	}
	if got, want := out.String(), "> conn:console\n  conn:requested\n"; got != want {
		t.Errorf("/list wrote %q, want %q", got, want)
	}
}

func TestConsoleClose(t *testing.T) {
	terminal, events, _ := newTestConsole(t)
	if _, err := terminal.handleLine(t.Context(), "/close"); err != nil {
		t.Fatalf("/close: %v", err)
	}
	got := testutil.RequireReceive(t, events, 5*time.Second, "closed event")
	if diff := cmp.Diff(debugbot.Event(debugbot.Closed{Conversation: defaultConversation}), got, testutil.RefOptions); diff != "" {
		t.Errorf("closed event mismatch (-want +got):\n%s", diff)
	}
	if _, err := terminal.handleLine(t.Context(), "still there?"); !messaging.IsDeliveryError(err, messaging.ErrCodeClosed) {
		t.Errorf("sending into a closed conversation error = %v, want closed", err)
	}
}

func TestConsoleQuitAndUnknown(t *testing.T) {
	terminal, _, _ := newTestConsole(t)
	if quit, err := terminal.handleLine(t.Context(), "/quit"); !quit || err != nil {
		t.Errorf("/quit = %t, %v, want quit", quit, err)
	}
	if _, err := terminal.handleLine(t.Context(), "/dance"); err == nil {
		t.Error("unknown console command accepted")
	}
	if quit, err := terminal.handleLine(t.Context(), "   "); quit || err != nil {
		t.Errorf("blank line = %t, %v", quit, err)
	}
}
