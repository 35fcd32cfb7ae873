// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package convlog is the message log model: what a crawled
// conversation looks like once it reaches the bot.
//
// A conversation is an append-only set of [Message] values. Each
// message carries exactly one [SpeechAct] and may reference earlier
// messages through its Effects. Nothing here imposes a global order;
// timestamps are approximate, and the log only ever sees a partial
// view of the conversation. When a total order is needed the package
// offers [Compare], which sorts by timestamp and breaks ties on the
// message id.
//
// Besides the model itself the package provides:
//
//   - [Log], a concurrency-safe in-memory message set, used as the
//     bot's eager cache and as the default crawl source in tests
//   - [Validate], which reports structural problems in a crawled set
//     (dangling references, duplicate ids, ill-typed effects)
//   - [Digest], a BLAKE3 digest over the deterministic CBOR encoding
//     of a message set
//   - snapshot files ([WriteSnapshot], [ReadSnapshot]): zstd-compressed
//     CBOR streams of messages
//   - fixture loading ([ParseFixture]): JSON-with-comments message
//     lists used to seed conversations and tests
//
// Messages are immutable once ingested. Every function that returns
// messages returns copies of the Effects slices it holds.
package convlog
