// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging is the outbound surface of the bot: the
// [Outbound] message the bot wants delivered, the [Sender] that
// delivers it, and the errors delivery can fail with.
//
// An Outbound carries text and typed references. Each [Reference]
// pairs a speech act with the message it acts upon, so "accept
// message X" is an Outbound with one Accepts reference to X. A
// transport turns the Outbound into a [convlog.Message] with
// [Materialize]; all references of one Outbound share a single act.
//
// [LogSender] is the in-process transport used by the console binary
// and by tests. It stamps each outbound message with a fresh id and
// the clock's time, appends it to a message sink, and hands it to
// observers. [Transcript] renders delivered messages for a terminal.
//
// Delivery failures are returned as [*DeliveryError] with a code from
// the ErrCode constants. [IsDeliveryError] tests for a specific code.
package messaging
