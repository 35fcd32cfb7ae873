// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agreement

import (
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
)

// Predicate selects messages for NLatestMessages.
type Predicate func(convlog.Message) bool

// LatestAgreement returns the most recently concluded agreement in
// force: the one whose accepting message sorts last.
func (s *State) LatestAgreement() (ref.MessageID, bool) {
	var latest ref.MessageID
	var latestAcceptance convlog.Message
	found := false
	for _, id := range s.Agreements() {
		acceptance, ok := s.Message(s.acceptedBy[id])
		if !ok {
			continue
		}
		if !found || convlog.Before(latestAcceptance, acceptance) {
			latest, latestAcceptance, found = id, acceptance, true
		}
	}
	return latest, found
}

// LatestPendingProposalOrClaim returns the newest pending Proposes,
// ProposesToCancel or Claims message. A non-zero sender restricts the
// search to that sender's messages.
func (s *State) LatestPendingProposalOrClaim(sender ref.AtomID) (ref.MessageID, bool) {
	return s.latest(func(message convlog.Message) bool {
		if !sender.IsZero() && message.Sender != sender {
			return false
		}
		return s.status[message.ID] == Pending
	})
}

// LatestProposesOrClaimsMessageSentBy returns sender's newest message
// that can still be rejected: a pending Proposes, ProposesToCancel or
// Claims message.
func (s *State) LatestProposesOrClaimsMessageSentBy(sender ref.AtomID) (ref.MessageID, bool) {
	return s.LatestPendingProposalOrClaim(sender)
}

// NLatestMessages returns up to n ids of messages matching predicate,
// newest first. It returns fewer when fewer match and never pads. A
// nil predicate matches everything.
func (s *State) NLatestMessages(predicate Predicate, n int) []ref.MessageID {
	if n <= 0 {
		return nil
	}
	var ids []ref.MessageID
	for index := len(s.messages) - 1; index >= 0 && len(ids) < n; index-- {
		message := s.messages[index]
		if predicate == nil || predicate(message) {
			ids = append(ids, message.ID)
		}
	}
	return ids
}

// NthLatestMessage returns the n-th newest match, counting from zero.
func (s *State) NthLatestMessage(predicate Predicate, n int) (ref.MessageID, bool) {
	ids := s.NLatestMessages(predicate, n+1)
	if len(ids) <= n {
		return ref.MessageID{}, false
	}
	return ids[n], true
}

// TextMessage returns the text body of id. It reports false for
// unknown ids and for messages without text.
func (s *State) TextMessage(id ref.MessageID) (string, bool) {
	message, ok := s.Message(id)
	if !ok || !message.HasText() {
		return "", false
	}
	return message.Text, true
}

func (s *State) latest(keep func(convlog.Message) bool) (ref.MessageID, bool) {
	for index := len(s.messages) - 1; index >= 0; index-- {
		if keep(s.messages[index]) {
			return s.messages[index].ID, true
		}
	}
	return ref.MessageID{}, false
}

// SentBy matches messages from sender.
func SentBy(sender ref.AtomID) Predicate {
	return func(message convlog.Message) bool { return message.Sender == sender }
}

// ActIs matches messages carrying one of acts.
func ActIs(acts ...convlog.SpeechAct) Predicate {
	return func(message convlog.Message) bool {
		for _, act := range acts {
			if message.Act == act {
				return true
			}
		}
		return false
	}
}

// All matches messages satisfying every predicate.
func All(predicates ...Predicate) Predicate {
	return func(message convlog.Message) bool {
		for _, predicate := range predicates {
			if !predicate(message) {
				return false
			}
		}
		return true
	}
}

// Any matches messages satisfying at least one predicate.
func Any(predicates ...Predicate) Predicate {
	return func(message convlog.Message) bool {
		for _, predicate := range predicates {
			if predicate(message) {
				return true
			}
		}
		return false
	}
}
