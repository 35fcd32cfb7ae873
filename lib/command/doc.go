// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package command provides [Future], the result handle for operations
// the bot asks its environment to perform: creating a helper
// participant, opening or closing a connection, replacing content.
//
// An environment operation completes at most once, either with a value
// or with an error. The bot usually does not block on it: it registers
// callbacks with [Future.Then] and moves on to the next message. Tests
// and the command-line entry point use [Future.Wait] instead.
//
// A conversation that closes while operations are in flight cancels
// them with [Future.Cancel]. Callbacks then observe [ErrCancelled] and
// a late completion from the environment is dropped.
package command
