// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logstore persists conversation logs in SQLite.
//
// The store keeps one row per message, keyed by (conversation, id),
// with the full message encoded as deterministic CBOR and the
// timestamp and id duplicated into indexed columns so a conversation
// reads back in its canonical order. Inserting an id that already
// exists is a no-op, which matches the append-only, immutable message
// model of lib/convlog.
//
// The binary uses a Store as the conversation source behind the
// crawler: everything the console transport sees or sends lands here,
// and a crawl reads it back.
package logstore
