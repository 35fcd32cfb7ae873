// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pacing tracks per-conversation send and receive times and
// decides when the bot may speak without being spoken to.
//
// The time since the counterpart last wrote places a conversation in
// one of four [Period] values. Each period carries the minimum pause
// the bot must leave after its own last message before it may send
// proactively:
//
//	Period   since last received   minimum pause
//	Active   <= 1m                 1m
//	Short    <= 5m                 1m
//	Long     <= 10m                2m
//	TooLong  > 10m or never        2m
//
// A [Tracker] holds one [Record] per conversation in a lock-striped
// map: updates to different conversations never contend, updates to
// the same conversation are serialized, and both timestamps only move
// forward.
package pacing
