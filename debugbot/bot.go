// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package debugbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/debugbot/lib/clock"
	"github.com/bureau-foundation/debugbot/lib/command"
	"github.com/bureau-foundation/debugbot/lib/config"
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/crawl"
	"github.com/bureau-foundation/debugbot/lib/pacing"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/lib/schedule"
	"github.com/bureau-foundation/debugbot/lib/textcommand"
	"github.com/bureau-foundation/debugbot/messaging"
)

// Config holds the bot's collaborators and settings.
type Config struct {
	// Atom is the bot's own atom. Messages from it are "mine".
	Atom ref.AtomID

	Sender    messaging.Sender
	Crawler   crawl.Crawler
	Lifecycle Lifecycle
	Scheduler *schedule.Scheduler

	// Cache is the message cache behind Crawler, switched by the
	// "cache" command. Optional.
	Cache *crawl.Cache

	// Pacing defaults to a new tracker.
	Pacing *pacing.Tracker

	// Clock defaults to the real clock.
	Clock clock.Clock

	// Timing holds the bot's delays. Zero fields take the defaults
	// of [config.Default], except ConnectDelay, where zero means no
	// delay.
	Timing config.Timing

	// Chatty configures unprompted messages. An empty Schedule turns
	// the chatty loop off.
	Chatty config.ChattyConfig

	// Random drives the chatty dice and message choice. Defaults to a
	// time-seeded source.
	Random *rand.Rand

	Metrics *Metrics
	Logger  *slog.Logger
}

// Bot reacts to conversation events. Create it with [New] and drive
// it with [Bot.Run].
type Bot struct {
	atom      ref.AtomID
	sender    messaging.Sender
	crawler   crawl.Crawler
	lifecycle Lifecycle
	scheduler *schedule.Scheduler
	cache     *crawl.Cache
	pacing    *pacing.Tracker
	clock     clock.Clock
	timing    config.Timing
	chatty    config.ChattyConfig
	limiter   *rate.Limiter
	random    *rand.Rand
	metrics   *Metrics
	logger    *slog.Logger

	commands *textcommand.Table[*turn]

	// workers tracks crawl goroutines and the chatty loop.
	workers sync.WaitGroup

	mu            sync.Mutex
	conversations map[ref.ConversationID]*conversation
}

// conversation is the bot's side of one conversation.
type conversation struct {
	id          ref.ConversationID
	counterpart ref.AtomID

	// parent is the context the conversation was created under. ctx
	// is cancelled when the conversation ends.
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	// Guarded by Bot.mu.
	chatty      bool
	outstanding []outstanding
}

// outstanding is a pending lifecycle operation.
type outstanding interface {
	Cancel() bool
	Settled() bool
}

// turn is one inbound text message and the conversation it arrived
// in. Command handlers receive it as their target.
type turn struct {
	conversation *conversation
	trigger      convlog.Message
}

// New validates config and returns a Bot.
func New(config Config) (*Bot, error) {
	if config.Atom.IsZero() {
		return nil, fmt.Errorf("debugbot: atom is required")
	}
	if config.Sender == nil {
		return nil, fmt.Errorf("debugbot: sender is required")
	}
	if config.Crawler == nil {
		return nil, fmt.Errorf("debugbot: crawler is required")
	}
	if config.Lifecycle == nil {
		return nil, fmt.Errorf("debugbot: lifecycle is required")
	}
	if config.Scheduler == nil {
		return nil, fmt.Errorf("debugbot: scheduler is required")
	}
	if config.Chatty.Schedule != "" && !gronx.IsValid(config.Chatty.Schedule) {
		return nil, fmt.Errorf("debugbot: invalid chatty schedule %q", config.Chatty.Schedule)
	}
	if config.Chatty.Probability < 0 || config.Chatty.Probability > 1 {
		return nil, fmt.Errorf("debugbot: chatty probability %v is outside [0, 1]", config.Chatty.Probability)
	}
	if config.Pacing == nil {
		config.Pacing = pacing.NewTracker()
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Random == nil {
		config.Random = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	config.Timing = withTimingDefaults(config.Timing)

	limit := rate.Inf
	if config.Chatty.Rate > 0 {
		limit = rate.Limit(config.Chatty.Rate)
	}
	burst := max(config.Chatty.Burst, 1)

	bot := &Bot{
		atom:          config.Atom,
		sender:        config.Sender,
		crawler:       config.Crawler,
		lifecycle:     config.Lifecycle,
		scheduler:     config.Scheduler,
		cache:         config.Cache,
		pacing:        config.Pacing,
		clock:         config.Clock,
		timing:        config.Timing,
		chatty:        config.Chatty,
		limiter:       rate.NewLimiter(limit, burst),
		random:        config.Random,
		metrics:       config.Metrics,
		logger:        config.Logger,
		conversations: make(map[ref.ConversationID]*conversation),
	}
	bot.commands = bot.commandTable()
	return bot, nil
}

func withTimingDefaults(timing config.Timing) config.Timing {
	if timing.CrawlTimeout <= 0 {
		timing.CrawlTimeout = crawl.DefaultTimeout
	}
	if timing.SendInterval <= 0 {
		timing.SendInterval = time.Second
	}
	if timing.DefaultWait <= 0 {
		timing.DefaultWait = 15 * time.Second
	}
	if timing.MaxWait <= 0 {
		timing.MaxWait = 99 * time.Second
	}
	if timing.ConnectDelay < 0 {
		timing.ConnectDelay = 0
	}
	return timing
}

// Usage returns the usage text the bot sends for "usage".
func (b *Bot) Usage() string { return b.commands.Usage() }

// Run handles events until events is closed or ctx is done. Before
// returning it cancels every conversation context and waits for the
// crawls and the chatty loop to finish. Scheduled tasks stay with the
// scheduler; close it after Run returns.
func (b *Bot) Run(ctx context.Context, events <-chan Event) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		b.workers.Wait()
	}()

	if b.chatty.Schedule != "" {
		b.workers.Go(func() { b.chattyLoop(ctx) })
	}
	b.logger.Info("debug bot running",
		"atom", b.atom,
		"commands", len(b.commands.Names()),
		"chatty_schedule", b.chatty.Schedule,
	)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("debug bot stopping", "reason", context.Cause(ctx))
			return nil
		case event, ok := <-events:
			if !ok {
				b.logger.Info("debug bot stopping", "reason", "event stream closed")
				return nil
			}
			b.handle(ctx, event)
		}
	}
}

// handle dispatches one event. A panicking handler is logged and the
// bot carries on with the next event.
func (b *Bot) handle(ctx context.Context, event Event) {
	defer b.recoverPanic("event", event.eventName())

	switch event := event.(type) {
	case MessageReceived:
		b.handleMessage(ctx, event.Message)
	case ConnectRequested:
		b.handleConnectRequest(ctx, event)
	case Opened:
		conversation := b.conversationFor(ctx, event.Conversation, event.Counterpart)
		b.pacing.RecordSent(conversation.id, b.clock.Now())
		b.logger.Info("conversation opened", "conversation_id", event.Conversation, "counterpart", event.Counterpart)
	case Closed:
		b.endConversation(event.Conversation, "closed")
	case AtomDeactivated:
		for _, id := range b.conversationsWith(event.Atom) {
			b.endConversation(id, "counterpart deactivated")
		}
	default:
		b.logger.Warn("ignoring unknown event", "event", fmt.Sprintf("%T", event))
	}
}

func (b *Bot) handleMessage(ctx context.Context, message convlog.Message) {
	conversation := b.conversationFor(ctx, message.Conversation, message.Sender)
	b.pacing.RecordReceived(conversation.id, b.clock.Now())
	b.metrics.received()

	if !message.HasText() {
		b.say(conversation.ctx, conversation, NonTextText)
		return
	}
	target := &turn{conversation: conversation, trigger: message}
	name := b.commands.Dispatch(conversation.ctx, target, message.Text, b.unknownCommand)
	b.metrics.command(name)
	b.logger.Debug("text message handled",
		"conversation_id", conversation.id,
		"message_id", message.ID,
		"command", name,
	)
}

// unknownCommand answers text that matched no command.
func (b *Bot) unknownCommand(ctx context.Context, target *turn, _ textcommand.Args) {
	b.say(ctx, target.conversation, fmt.Sprintf(
		"I don't understand '%s'. Type 'usage' to see which commands I know.",
		textcommand.Normalize(target.trigger.Text)))
}

func (b *Bot) recoverPanic(kind, name string) {
	if recovered := recover(); recovered != nil {
		b.metrics.panicked()
		b.logger.Error("handler panicked",
			"kind", kind,
			"name", name,
			"panic", fmt.Sprint(recovered),
			"stack", string(debug.Stack()),
		)
	}
}

// spawn runs fn on a tracked goroutine under the conversation's
// context.
func (b *Bot) spawn(conversation *conversation, name string, fn func(ctx context.Context)) {
	b.workers.Go(func() {
		defer b.recoverPanic("task", name)
		fn(conversation.ctx)
	})
}

// conversationFor returns the conversation with id, creating it under
// parent when the bot does not know it yet.
func (b *Bot) conversationFor(parent context.Context, id ref.ConversationID, counterpart ref.AtomID) *conversation {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.conversations[id]; ok {
		return existing
	}
	ctx, cancel := context.WithCancel(parent)
	created := &conversation{
		id:          id,
		counterpart: counterpart,
		parent:      parent,
		ctx:         ctx,
		cancel:      cancel,
		chatty:      b.chatty.Enabled,
	}
	b.conversations[id] = created
	b.metrics.setConversations(len(b.conversations))
	b.logger.Debug("conversation started", "conversation_id", id, "counterpart", counterpart)
	return created
}

// conversationsWith returns the conversations with counterpart in id
// order.
func (b *Bot) conversationsWith(counterpart ref.AtomID) []ref.ConversationID {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []ref.ConversationID
	for id, conversation := range b.conversations {
		if conversation.counterpart == counterpart {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, ref.ConversationID.Compare)
	return ids
}

// endConversation cancels everything the bot has running for the
// conversation and forgets it.
func (b *Bot) endConversation(id ref.ConversationID, reason string) {
	b.mu.Lock()
	conversation, ok := b.conversations[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.conversations, id)
	pending := conversation.outstanding
	conversation.outstanding = nil
	conversation.chatty = false
	remaining := len(b.conversations)
	b.mu.Unlock()

	conversation.cancel()
	cancelledTasks := b.scheduler.CancelKey(id)
	cancelledOperations := 0
	for _, operation := range pending {
		if operation.Cancel() {
			cancelledOperations++
		}
	}
	b.pacing.Forget(id)
	if b.cache != nil {
		b.cache.Forget(id)
	}
	b.metrics.setConversations(remaining)
	b.logger.Info("conversation ended",
		"conversation_id", id,
		"reason", reason,
		"cancelled_tasks", cancelledTasks,
		"cancelled_operations", cancelledOperations,
	)
}

// track registers future as outstanding for conversation, so ending
// the conversation cancels it. A future for a conversation that has
// already ended is cancelled at once.
func track[T any](b *Bot, conversation *conversation, future *command.Future[T]) *command.Future[T] {
	b.mu.Lock()
	if b.conversations[conversation.id] != conversation {
		b.mu.Unlock()
		future.Cancel()
		return future
	}
	kept := conversation.outstanding[:0]
	for _, operation := range conversation.outstanding {
		if !operation.Settled() {
			kept = append(kept, operation)
		}
	}
	conversation.outstanding = append(kept, future)
	b.mu.Unlock()
	return future
}

// send delivers o and records the send for pacing. Failures are
// logged and returned.
func (b *Bot) send(ctx context.Context, conversation *conversation, o messaging.Outbound) (ref.MessageID, error) {
	id, err := b.sender.Send(ctx, o)
	if err != nil {
		b.metrics.sendFailed()
		if messaging.IsDeliveryError(err, messaging.ErrCodeClosed) {
			b.logger.Debug("not sending to closed conversation", "conversation_id", conversation.id, "error", err)
		} else {
			b.logger.Warn("sending message failed", "conversation_id", conversation.id, "error", err)
		}
		return ref.MessageID{}, fmt.Errorf("sending to %s: %w", conversation.id, err)
	}
	b.pacing.RecordSent(conversation.id, b.clock.Now())
	b.metrics.sent()
	return id, nil
}

// say sends a plain text message.
func (b *Bot) say(ctx context.Context, conversation *conversation, text string) {
	_, _ = b.send(ctx, conversation, messaging.NewText(conversation.id, text))
}

// reply adapts say to the command table.
func (b *Bot) reply(ctx context.Context, target *turn, text string) {
	b.say(ctx, target.conversation, text)
}

// deliver sends o and tells the user when that failed for a reason
// other than the conversation going away.
func (b *Bot) deliver(ctx context.Context, conversation *conversation, o messaging.Outbound) {
	_, err := b.send(ctx, conversation, o)
	if err == nil || ctx.Err() != nil || messaging.IsDeliveryError(err, messaging.ErrCodeClosed) {
		return
	}
	b.say(ctx, conversation, "Sorry, I could not send that message: "+err.Error())
}

// reportFailure tells the user that action failed. Cancellation is
// not reported: it only happens when the conversation is gone.
func (b *Bot) reportFailure(ctx context.Context, conversation *conversation, action string, err error) {
	if errors.Is(err, command.ErrCancelled) || ctx.Err() != nil {
		b.logger.Debug("operation cancelled", "conversation_id", conversation.id, "action", action)
		return
	}
	b.logger.Warn("operation failed", "conversation_id", conversation.id, "action", action, "error", err)
	b.say(ctx, conversation, fmt.Sprintf("Sorry, I could not %s: %v", action, err))
}
