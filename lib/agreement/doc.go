// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agreement reconstructs negotiation state from a crawled
// message set.
//
// A crawl returns an unordered, possibly partial set of messages.
// [Reconstruct] sorts it by (timestamp, id), registers every Proposes,
// ProposesToCancel and Claims message as pending, then replays the
// Accepts, Rejects and Retracts messages in order:
//
//   - Accepts moves a pending proposal to accepted. A Proposes or
//     Claims message that is accepted becomes an agreement. An
//     accepted ProposesToCancel cancels every agreement it targets
//     that is in force at that moment, and is itself recorded as a
//     cancellation rather than an agreement. Accepting something that
//     is already accepted is logged as an anomaly and changes nothing.
//   - Rejects moves a pending proposal to rejected. Rejecting an
//     agreement has no effect; use a cancellation.
//   - Retracts withdraws the sender's own message: a pending proposal
//     stops being pending, an agreement stops being in force.
//
// A proposal cannot be accepted or rejected by its own sender, and a
// message can only be retracted by its sender. References that do
// not resolve inside the set, that point at the wrong kind of message,
// or that break those sender rules are ignored and counted in
// [State.Unresolved]; they never fail the reconstruction.
//
// Reconstruction is a pure function of its input: the same set, in
// any order, yields the same [State]. A State is read-only and safe
// for concurrent queries.
//
// The bot reconstructs once per state-dependent command, with [AsOf]
// narrowing the view to what existed when the command arrived:
//
//	state := agreement.Reconstruct(result.Messages,
//	    agreement.AsOf(command.Timestamp, command.ID),
//	    agreement.WithLogger(logger))
//	if proposal, ok := state.LatestPendingProposalOrClaim(counterpart); ok {
//	    // accept it
//	}
package agreement
