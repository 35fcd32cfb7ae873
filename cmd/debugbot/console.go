// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/bureau-foundation/debugbot/debugbot"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/messaging"
)

// console turns stdin lines into bot events. The user's messages go
// through the same sender as the bot's, so both sides share one
// timeline in the store.
type console struct {
	sender          *messaging.LogSender
	user            ref.AtomID
	out             io.Writer
	events          chan<- debugbot.Event
	newConversation func() ref.ConversationID
	logger          *slog.Logger

	current ref.ConversationID
	known   []ref.ConversationID
}

// run reads lines from in until it is exhausted, the user quits, or
// ctx is done. It closes events before returning.
func (c *console) run(ctx context.Context, in io.Reader) error {
	defer close(c.events)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("reading console input: %w", err)
			}
			return nil
		case line := <-lines:
			quit, err := c.handleLine(ctx, line)
			if err != nil {
				fmt.Fprintf(c.out, "! %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// handleLine acts on one input line. It reports whether the user asked
// to quit.
func (c *console) handleLine(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, c.say(ctx, line)
	}

	command, argument, _ := strings.Cut(line[1:], " ")
	argument = strings.TrimSpace(argument)
	switch command {
	case "quit":
		return true, nil
	case "request":
		id := c.newConversation()
		c.remember(id)
		c.current = id
		fmt.Fprintf(c.out, "* requesting conversation %s\n", id)
		return false, c.emit(ctx, debugbot.ConnectRequested{Conversation: id, From: c.user, Text: argument})
	case "switch":
		id, err := ref.ParseConversationID(argument)
		if err != nil {
			return false, fmt.Errorf("switching conversation: %w", err)
		}
		c.remember(id)
		c.current = id
		fmt.Fprintf(c.out, "* now talking in %s\n", id)
		return false, nil
	case "list":
		for _, id := range c.known {
			marker := " "
			if id == c.current {
				marker = ">"
			}
			fmt.Fprintf(c.out, "%s %s\n", marker, id)
		}
		return false, nil
	case "close":
		c.sender.CloseConversation(c.current)
		fmt.Fprintf(c.out, "* closed %s\n", c.current)
		return false, c.emit(ctx, debugbot.Closed{Conversation: c.current})
	default:
		return false, fmt.Errorf("unknown console command %q", command)
	}
}

// say delivers text from the user into the current conversation and
// hands it to the bot.
func (c *console) say(ctx context.Context, text string) error {
	message, err := c.sender.Deliver(ctx, c.user, messaging.NewText(c.current, text))
	if err != nil {
		return fmt.Errorf("sending to %s: %w", c.current, err)
	}
	c.remember(c.current)
	return c.emit(ctx, debugbot.MessageReceived{Message: message})
}

func (c *console) emit(ctx context.Context, event debugbot.Event) error {
	select {
	case c.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// remember records a conversation for /list.
func (c *console) remember(id ref.ConversationID) {
	if slices.Contains(c.known, id) {
		return
	}
	c.known = append(c.known, id)
	c.logger.Debug("console conversation added", "conversation_id", id)
}
