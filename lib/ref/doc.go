// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides the typed identifiers the debug bot passes
// around: messages, conversations, and atoms (the parties that own
// conversations and author messages).
//
// All three are opaque to the bot. The log they come from assigns them
// (typically URIs), and the only thing the bot relies on is that an id
// is stable, comparable, and totally ordered as a string. Ordering
// matters: when two messages carry the same timestamp, the message id
// breaks the tie.
//
// Each type is an immutable value. The zero value means "unset" and is
// what every lookup returns when nothing was found; test with IsZero.
// Parse functions reject empty ids, ids containing whitespace or
// control characters, and ids longer than maxLength. All types
// implement encoding.TextMarshaler so they serialize as plain strings
// in JSON, YAML, and CBOR.
package ref
