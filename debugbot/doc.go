// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package debugbot is a conversational test partner. It answers free
// text commands in every conversation it takes part in, and it can
// negotiate: propose earlier messages as clauses, accept, reject and
// retract them, and propose to cancel agreements.
//
// A [Bot] consumes one channel of [Event] values in [Bot.Run] and
// dispatches each event synchronously. Text messages go through a
// [textcommand.Table]; unmatched text gets a short generic answer.
// Commands that depend on negotiation state follow one path:
//
//	announce -> crawl -> report -> reconstruct as of the command
//	         -> compose -> send
//
// The crawl may take up to the configured crawl timeout, so this path
// runs on its own goroutine under the conversation's context. A slow
// crawl in one conversation never holds up events for another.
//
// Delayed work (the "send N" messages, deferred connect replies, the
// pause before a debug atom connects) goes through a
// [schedule.Scheduler] keyed by conversation. When a conversation
// closes, the bot cancels its scheduled tasks, its in-flight crawls
// and its outstanding [Lifecycle] operations, and forgets its pacing
// and cache state.
//
// Chatty conversations get an unprompted message now and then. The
// bot wakes on a cron schedule, and for each chatty conversation
// sends with a fixed probability, provided the [pacing.Tracker] allows
// it and a global rate budget has room. Conversations whose
// counterpart has been silent for too long stop being chatty.
//
// Atom management (creating debug atoms, hints, connects, closing and
// deactivating) is delegated to a [Lifecycle]. [LocalLifecycle]
// implements it in process for the console binary and tests.
package debugbot
