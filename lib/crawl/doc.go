// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package crawl fetches the message set of one conversation.
//
// A crawl is the bot's only view of a conversation: it is bounded in
// time, it may come back incomplete, and nothing it returns is in any
// particular order. [Crawler] is the interface the bot consumes.
//
// [SourceCrawler] crawls a [Source] (the in-memory log, or the sqlite
// message store) under a deadline. When the deadline passes it returns
// a partial [Result] together with [ErrTimeout]; callers proceed with
// what they got.
//
// [Bounded] applies the default crawl timeout and coalesces concurrent
// crawls of the same conversation into one.
//
// [Cache] keeps a local copy of conversations it has seen in full.
// While eager it records every message the bot observes, so later
// crawls of a fully cached conversation never reach the source. While
// lazy it records nothing and forwards every crawl.
package crawl
