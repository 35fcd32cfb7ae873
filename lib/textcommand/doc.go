// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package textcommand maps free-text chat messages to command
// handlers through an ordered table of regular-expression bindings.
//
// Matching is structural, not linguistic. The message text is trimmed
// and every run of whitespace collapsed to one space; the result must
// match a binding's pattern in full, ignoring case. Bindings are tried
// in registration order and the first match wins, so a more specific
// binding must come before a more general one. Captured groups are
// handed to the handler lower-cased, which makes "CHATTY ON", "chatty
// on" and "Chatty  on" indistinguishable.
//
// Every table carries a usage binding (usage, ?, help, debug) that
// replies with the generated usage text. Register [UsageBinding]
// explicitly to control its position; otherwise it is appended last.
//
// Parameter parsing never fails a command. [Args.Int] and
// [Args.OneOf] fall back to the command's default when a group is
// absent, malformed or out of range.
package textcommand
