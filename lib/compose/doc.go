// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compose builds the bot's replies to state-dependent
// commands.
//
// Every such reply follows one shape: query the reconstructed
// negotiation state for some earlier messages, refer to them with a
// speech act, and explain what happened in text. A [Pipeline] holds
// the three strategies for one command: a [Finder] picks the target
// messages, a [Referrer] attaches them with the command's speech act,
// and a [TextMaker] writes the explanation. When the finder comes up
// empty the reply carries only the text maker's not-found text and
// performs no protocol action.
package compose
