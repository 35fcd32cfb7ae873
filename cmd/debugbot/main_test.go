// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/debugbot/lib/config"
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/logstore"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/lib/sqlitepool"
	"github.com/bureau-foundation/debugbot/lib/testutil"
)

// syncBuffer is a concurrency-safe output sink that lets a test wait
// for text to appear.
type syncBuffer struct {
	mu      sync.Mutex
	buffer  bytes.Buffer
	changed chan struct{}
}

func newSyncBuffer() *syncBuffer {
	return &syncBuffer{changed: make(chan struct{})}
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.buffer.Write(p)
	close(b.changed)
	b.changed = make(chan struct{})
	return n, err
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer.String()
}

// waitFor blocks until the output contains text.
func (b *syncBuffer) waitFor(t *testing.T, text string) {
	t.Helper()
	deadline := time.After(10 * time.Second) //nolint:realclock test hang prevention
	for {
		b.mu.Lock()
		found := strings.Contains(b.buffer.String(), text)
		changed := b.changed
		b.mu.Unlock()
		if found {
			return
		}
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("output never contained %q:\n%s", text, b.String())
		}
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Bot.ConnectDelay = "0s"
	cfg.Chatty.Enabled = false
	return cfg
}

func readSnapshot(t *testing.T, path string) []convlog.Message {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening snapshot: %v", err)
	}
	defer file.Close()
	messages, err := convlog.ReadSnapshot(file)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	return messages
}

func TestServeAnswersConsoleAndWritesSnapshot(t *testing.T) {
	out := newSyncBuffer()
	snapshotPath := filepath.Join(t.TempDir(), "conversation.snapshot")

	err := serve(t.Context(), testConfig(), slog.New(slog.DiscardHandler), options{
		snapshotPath: snapshotPath,
		in:           strings.NewReader("usage\n/quit\n"),
		out:          out,
	})
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !strings.Contains(out.String(), "Usage") {
		t.Errorf("transcript has no usage text:\n%s", out.String())
	}

	messages := readSnapshot(t, snapshotPath)
	if len(messages) != 2 {
		t.Fatalf("snapshot has %d messages, want the command and its answer", len(messages))
	}
	if messages[0].Sender != consoleUser || messages[0].Text != "usage" {
		t.Errorf("first message = %+v, want the console user's command", messages[0])
	}
	if !strings.HasPrefix(messages[1].Text, "# Usage:\n") {
		t.Errorf("answer = %q, want the usage text", messages[1].Text)
	}
}

func TestServeAcceptsSeededProposal(t *testing.T) {
	fixturePath := testutil.WriteFile(t, "seed.jsonc", `{
	  // a pending proposal from the console user
	  "conversation": "conn:seeded",
	  "messages": [
	    {"id": "P1", "sender": "atom:console-user", "timestamp": "2026-01-01T00:00:00Z",
	     "act": "proposes", "text": "let's meet at noon"},
	  ],
	}`)
	snapshotPath := filepath.Join(t.TempDir(), "conversation.snapshot")
	input, writer := io.Pipe()
	defer writer.Close()
	out := newSyncBuffer()

	done := make(chan error, 1)
	go func() {
		done <- serve(t.Context(), testConfig(), slog.New(slog.DiscardHandler), options{
			seedPath:     fixturePath,
			snapshotPath: snapshotPath,
			in:           input,
			out:          out,
		})
	}()

	written := make(chan error, 1)
	go func() {
		_, err := io.WriteString(writer, "accept\n")
		written <- err
	}()
	select {
	case err := <-written:
		if err != nil {
			t.Fatalf("writing input: %v", err)
		}
	case err := <-done:
		t.Fatalf("serve returned before reading input: %v", err)
	}
	out.waitFor(t, "hereby")
	writer.Close()
	if err := testutil.RequireReceive(t, done, 10*time.Second, "waiting for serve"); err != nil {
		t.Fatalf("serve: %v", err)
	}

	var acceptance *convlog.Message
	for _, message := range readSnapshot(t, snapshotPath) {
		if message.Act == convlog.Accepts {
			acceptance = &message
		}
	}
	if acceptance == nil {
		t.Fatal("snapshot holds no acceptance")
	}
	if acceptance.Conversation != ref.MustParseConversationID("conn:seeded") {
		t.Errorf("acceptance conversation = %s, want conn:seeded", acceptance.Conversation)
	}
	if diff := cmp.Diff([]ref.MessageID{ref.MustParseMessageID("P1")}, acceptance.Effects, testutil.RefOptions); diff != "" {
		t.Errorf("acceptance effects mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultConfigStoreOpens(t *testing.T) {
	cfg := config.Default()
	if cfg.Store.Path != sqlitepool.Memory {
		t.Fatalf("default store path = %q, want %q", cfg.Store.Path, sqlitepool.Memory)
	}
	store, err := logstore.Open(logstore.Config{Path: cfg.Store.Path, PoolSize: cfg.Store.PoolSize})
	if err != nil {
		t.Fatalf("opening the default store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	input, writer := io.Pipe()
	defer writer.Close()
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, testConfig(), slog.New(slog.DiscardHandler), options{in: input, out: newSyncBuffer()})
	}()
	cancel()
	if err := testutil.RequireReceive(t, done, 10*time.Second, "waiting for serve"); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DEBUGBOT_CONFIG", "")
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig defaults: %v", err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}

	path := testutil.WriteFile(t, "debugbot.yaml", "chatty:\n  probability: 2\n")
	if _, err := loadConfig(path); err == nil {
		t.Error("loadConfig accepted a probability above one")
	}
}

func TestNewLoggerFormats(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "json"
	var buffer bytes.Buffer
	logger, err := newLogger(cfg, &buffer)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Info("hello", "conversation_id", "conn:1")
	if !strings.HasPrefix(buffer.String(), "{") {
		t.Errorf("json logger wrote %q", buffer.String())
	}

	cfg.Log.Level = "loud"
	if _, err := newLogger(cfg, &buffer); err == nil {
		t.Error("newLogger accepted an unknown level")
	}
}
