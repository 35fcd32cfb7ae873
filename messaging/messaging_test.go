// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/debugbot/lib/clock"
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/lib/testutil"
)

var (
	epoch        = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	bot          = ref.MustParseAtomID("atom:debugbot")
	counterpart  = ref.MustParseAtomID("atom:alice")
	conversation = ref.MustParseConversationID("conn:alice")
	sibling      = ref.MustParseConversationID("conn:alice-2")
)

func sequentialIDs() func() ref.MessageID {
	next := 0
	return func() ref.MessageID {
		next++
		return ref.MustParseMessageID("out-" + string(rune('a'+next-1)))
	}
}

func newTestSender(t *testing.T, log *convlog.Log) (*LogSender, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	sender, err := NewLogSender(LogSenderConfig{
		Atom:  bot,
		Sink:  LogSink(log),
		Clock: fake,
		NewID: sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("NewLogSender: %v", err)
	}
	return sender, fake
}

func TestOutboundAct(t *testing.T) {
	t.Parallel()
	target := ref.MustParseMessageID("m1")
	other := ref.MustParseMessageID("m2")

	tests := []struct {
		name     string
		outbound Outbound
		want     convlog.SpeechAct
		wantErr  bool
	}{
		{name: "text only", outbound: NewText(conversation, "hi"), want: convlog.Plain},
		{name: "accept", outbound: NewText(conversation, "ok").With(convlog.Accepts, target), want: convlog.Accepts},
		{name: "propose two", outbound: NewText(conversation, "").With(convlog.Proposes, target, other), want: convlog.Proposes},
		{name: "mixed", outbound: NewText(conversation, "").With(convlog.Accepts, target).With(convlog.Rejects, other), wantErr: true},
		{name: "plain reference", outbound: NewText(conversation, "").With(convlog.Plain, target), wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := test.outbound.Act()
			if test.wantErr {
				if err == nil {
					t.Fatalf("Act() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Act: %v", err)
			}
			if got != test.want {
				t.Errorf("Act() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestWithDoesNotAlias(t *testing.T) {
	t.Parallel()
	base := NewText(conversation, "x").With(convlog.Proposes, ref.MustParseMessageID("m1"))
	first := base.With(convlog.Proposes, ref.MustParseMessageID("m2"))
	second := base.With(convlog.Proposes, ref.MustParseMessageID("m3"))
	if first.References[1].Target == second.References[1].Target {
		t.Error("With shares the reference slice between copies")
	}
}

func TestLogSenderDeliversIntoLog(t *testing.T) {
	t.Parallel()
	log := convlog.NewLog()
	sender, _ := newTestSender(t, log)

	var observed []ref.MessageID
	sender.Observe(func(message convlog.Message) { observed = append(observed, message.ID) })

	ctx := context.Background()
	target := ref.MustParseMessageID("m-prop")
	first, err := sender.Send(ctx, NewText(conversation, "I accept"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	second, err := sender.Send(ctx, NewText(conversation, "").With(convlog.Accepts, target))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	messages := log.Messages(conversation)
	if len(messages) != 2 {
		t.Fatalf("log has %d messages, want 2", len(messages))
	}
	if messages[0].ID != first || messages[1].ID != second {
		t.Errorf("log order = %v, %v; want %v, %v", messages[0].ID, messages[1].ID, first, second)
	}
	if !messages[0].Timestamp.Before(messages[1].Timestamp) {
		t.Error("timestamps of sends at one instant do not increase")
	}
	if diff := cmp.Diff([]ref.MessageID{target}, messages[1].Effects, testutil.RefOptions); diff != "" {
		t.Errorf("effects (-want +got):\n%s", diff)
	}
	if messages[1].Act != convlog.Accepts || messages[1].Sender != bot {
		t.Errorf("message = %+v, want an Accepts from %s", messages[1], bot)
	}
	if diff := cmp.Diff([]ref.MessageID{first, second}, observed, testutil.RefOptions); diff != "" {
		t.Errorf("observed (-want +got):\n%s", diff)
	}
}

func TestLogSenderInjects(t *testing.T) {
	t.Parallel()
	log := convlog.NewLog()
	sender, _ := newTestSender(t, log)
	closed := ref.MustParseConversationID("conn:gone")
	sender.CloseConversation(closed)

	outbound := NewText(conversation, "This is the injected message.")
	outbound.InjectInto = []ref.ConversationID{sibling, closed, conversation}
	if _, err := sender.Send(context.Background(), outbound); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if log.Len(conversation) != 1 {
		t.Errorf("origin conversation has %d messages, want 1", log.Len(conversation))
	}
	injected := log.Messages(sibling)
	if len(injected) != 1 || injected[0].Text != outbound.Text || injected[0].Act != convlog.Plain {
		t.Errorf("sibling conversation = %+v, want one plain copy", injected)
	}
	if log.Len(closed) != 0 {
		t.Error("closed conversation received an injected copy")
	}
}

func TestLogSenderErrors(t *testing.T) {
	t.Parallel()
	log := convlog.NewLog()
	sender, _ := newTestSender(t, log)

	sender.CloseConversation(conversation)
	_, err := sender.Send(context.Background(), NewText(conversation, "hello"))
	if !IsDeliveryError(err, ErrCodeClosed) {
		t.Errorf("send to closed conversation: err = %v, want %s", err, ErrCodeClosed)
	}

	mixed := NewText(sibling, "").With(convlog.Accepts, ref.MustParseMessageID("a")).With(convlog.Rejects, ref.MustParseMessageID("b"))
	_, err = sender.Send(context.Background(), mixed)
	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) || deliveryErr.Code != ErrCodeInvalid {
		t.Errorf("mixed references: err = %v, want %s", err, ErrCodeInvalid)
	}
	if deliveryErr != nil && deliveryErr.Conversation != sibling {
		t.Errorf("error conversation = %s, want %s", deliveryErr.Conversation, sibling)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sender.Send(ctx, NewText(sibling, "late"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("send with cancelled context: err = %v, want context.Canceled", err)
	}
	if log.Len(sibling) != 0 {
		t.Errorf("failed sends stored %d messages", log.Len(sibling))
	}
}

func TestNewLogSenderRequiresAtomAndSink(t *testing.T) {
	t.Parallel()
	if _, err := NewLogSender(LogSenderConfig{Sink: LogSink(convlog.NewLog())}); err == nil {
		t.Error("NewLogSender without atom succeeded")
	}
	if _, err := NewLogSender(LogSenderConfig{Atom: bot}); err == nil {
		t.Error("NewLogSender without sink succeeded")
	}
}

func TestTranscriptRendersUsageMarkdown(t *testing.T) {
	t.Parallel()
	var output strings.Builder
	transcript := NewTranscript(&output, TranscriptOptions{Self: bot, Width: 60})

	message := convlog.Message{
		ID:           ref.MustParseMessageID("m-usage"),
		Conversation: conversation,
		Sender:       bot,
		Timestamp:    epoch,
		Act:          convlog.Plain,
		Text:         "# Usage:\n* usage: display this message\n* send N: send N messages, one per second",
	}
	if err := transcript.Write(message); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := ansi.Strip(output.String())
	for _, want := range []string{
		"09:30:00 atom:debugbot (m-usage)",
		"  Usage:",
		"  • usage: display this message",
		"  • send N: send N messages, one per second",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("transcript missing %q in:\n%s", want, got)
		}
	}
}

func TestTranscriptShowsActAndTargets(t *testing.T) {
	t.Parallel()
	transcript := NewTranscript(&strings.Builder{}, TranscriptOptions{Self: bot})
	rendered := ansi.Strip(transcript.Render(convlog.Message{
		ID:        ref.MustParseMessageID("m-acc"),
		Sender:    counterpart,
		Timestamp: epoch,
		Act:       convlog.Accepts,
		Effects:   []ref.MessageID{ref.MustParseMessageID("m1"), ref.MustParseMessageID("m2")},
	}))
	if want := "09:30:00 atom:alice accepts → m1, m2 (m-acc)"; rendered != want {
		t.Errorf("Render = %q, want %q", rendered, want)
	}
}

func TestDeliverSharesTimeline(t *testing.T) {
	t.Parallel()
	log := convlog.NewLog()
	sender, _ := newTestSender(t, log)
	ctx := context.Background()

	inbound, err := sender.Deliver(ctx, counterpart, NewText(conversation, "retract"))
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	reply, err := sender.Send(ctx, NewText(conversation, "ok"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	announce, _ := log.Get(conversation, reply)
	if inbound.Sender != counterpart {
		t.Errorf("inbound sender = %s, want %s", inbound.Sender, counterpart)
	}
	if !announce.Timestamp.After(inbound.Timestamp) {
		t.Errorf("reply at %v is not after the inbound message at %v", announce.Timestamp, inbound.Timestamp)
	}
}
