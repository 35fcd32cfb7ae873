// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// debugbot runs the debug bot against a console transport. Each line
// typed on stdin is a message from the local user into the current
// conversation; the bot's answers are rendered on stdout. Lines
// starting with a slash control the transport:
//
//	/request TEXT   ask for a new conversation with handshake TEXT
//	/switch ID      make conversation ID the current one
//	/list           list the conversations seen so far
//	/close          close the current conversation
//	/quit           stop the bot
//
// Messages are kept in a sqlite store (in memory by default). A JSONC
// fixture given with --seed is loaded before the bot starts, and
// --snapshot-out writes every stored conversation as a zstd compressed
// CBOR snapshot on shutdown.
package main
