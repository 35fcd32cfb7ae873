// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agreement

import (
	"log/slog"
	"slices"
	"time"

	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
)

// Status is where a proposal-like message stands after replay.
type Status int

const (
	// NotProposal is reported for messages that are not Proposes,
	// ProposesToCancel or Claims, and for unknown ids.
	NotProposal Status = iota
	Pending
	Accepted
	Rejected
	Retracted
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case Retracted:
		return "retracted"
	case Cancelled:
		return "cancelled"
	}
	return "not_proposal"
}

// State is the reconstructed negotiation state of one crawled set.
type State struct {
	// messages holds the de-duplicated set in ascending order.
	messages []convlog.Message
	position map[ref.MessageID]int

	status     map[ref.MessageID]Status
	acceptedBy map[ref.MessageID]ref.MessageID
	retracted  map[ref.MessageID]bool

	unresolved int
	anomalies  int
}

// Option adjusts a reconstruction.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	asOf    time.Time
	exclude ref.MessageID
}

// WithLogger sets the logger that receives anomalies (warn) and
// ignored references (debug).
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// AsOf drops every message timestamped after instant and the message
// exclude itself. A command handler passes its own triggering message
// so the command text and anything sent after it are not part of the
// view the command acts on. A zero exclude drops nothing by id.
func AsOf(instant time.Time, exclude ref.MessageID) Option {
	return func(o *options) {
		o.asOf = instant
		o.exclude = exclude
	}
}

// Reconstruct derives the negotiation state of messages. An empty or
// nil input yields an empty state.
func Reconstruct(messages []convlog.Message, opts ...Option) *State {
	config := options{}
	for _, opt := range opts {
		opt(&config)
	}
	logger := config.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	state := &State{
		position:   make(map[ref.MessageID]int, len(messages)),
		status:     make(map[ref.MessageID]Status),
		acceptedBy: make(map[ref.MessageID]ref.MessageID),
		retracted:  make(map[ref.MessageID]bool),
	}

	for _, message := range convlog.Sorted(messages) {
		if !config.exclude.IsZero() && message.ID == config.exclude {
			continue
		}
		if !config.asOf.IsZero() && message.Timestamp.After(config.asOf) {
			continue
		}
		if _, duplicate := state.position[message.ID]; duplicate {
			continue
		}
		state.position[message.ID] = len(state.messages)
		state.messages = append(state.messages, message)
		if message.Act.IsProposal() {
			state.status[message.ID] = Pending
		}
	}

	for _, message := range state.messages {
		if !message.Act.IsResponse() {
			continue
		}
		for _, effect := range message.Effects {
			state.apply(logger, message, effect)
		}
	}
	return state
}

// apply replays one effect of a response message.
func (s *State) apply(logger *slog.Logger, response convlog.Message, effect ref.MessageID) {
	target, ok := s.Message(effect)
	if !ok || effect == response.ID {
		s.ignore(logger, response, effect, "unresolved reference")
		return
	}

	switch response.Act {
	case convlog.Accepts:
		if !target.Act.IsProposal() {
			s.ignore(logger, response, effect, "accepts a message that proposes nothing")
			return
		}
		if target.Sender == response.Sender {
			s.ignore(logger, response, effect, "sender accepts its own proposal")
			return
		}
		switch s.status[effect] {
		case Pending:
			s.status[effect] = Accepted
			s.acceptedBy[effect] = response.ID
			if target.Act == convlog.ProposesToCancel {
				s.cancel(logger, target)
			}
		case Accepted:
			s.anomalies++
			logger.Warn("duplicate acceptance ignored",
				"proposal_id", effect,
				"accepted_by", s.acceptedBy[effect],
				"duplicate_id", response.ID,
			)
		default:
			s.ignore(logger, response, effect, "accepts a proposal that is no longer open")
		}

	case convlog.Rejects:
		if !target.Act.IsProposal() {
			s.ignore(logger, response, effect, "rejects a message that proposes nothing")
			return
		}
		if target.Sender == response.Sender {
			s.ignore(logger, response, effect, "sender rejects its own proposal")
			return
		}
		if s.status[effect] == Pending {
			s.status[effect] = Rejected
		}

	case convlog.Retracts:
		if target.Sender != response.Sender {
			s.ignore(logger, response, effect, "retracts a message sent by someone else")
			return
		}
		s.retracted[effect] = true
		switch s.status[effect] {
		case Pending:
			s.status[effect] = Retracted
		case Accepted:
			if target.Act != convlog.ProposesToCancel {
				s.status[effect] = Retracted
			}
		}
	}
}

// cancel applies an accepted cancellation proposal to the agreements
// in force right now.
func (s *State) cancel(logger *slog.Logger, cancellation convlog.Message) {
	for _, effect := range cancellation.Effects {
		target, ok := s.Message(effect)
		if !ok || target.Act == convlog.ProposesToCancel || !target.Act.IsProposal() {
			s.ignore(logger, cancellation, effect, "cancels something that is not an agreement")
			continue
		}
		if s.status[effect] != Accepted {
			s.ignore(logger, cancellation, effect, "cancels an agreement that is not in force")
			continue
		}
		s.status[effect] = Cancelled
	}
}

func (s *State) ignore(logger *slog.Logger, message convlog.Message, effect ref.MessageID, reason string) {
	s.unresolved++
	logger.Debug("reference ignored",
		"message_id", message.ID,
		"act", message.Act,
		"target_id", effect,
		"reason", reason,
	)
}

// Len returns the number of distinct messages in the view.
func (s *State) Len() int { return len(s.messages) }

// Unresolved counts effects that were ignored during replay.
func (s *State) Unresolved() int { return s.unresolved }

// Anomalies counts duplicate acceptances.
func (s *State) Anomalies() int { return s.anomalies }

// Message returns the message with the given id.
func (s *State) Message(id ref.MessageID) (convlog.Message, bool) {
	position, ok := s.position[id]
	if !ok {
		return convlog.Message{}, false
	}
	return s.messages[position], true
}

// Status reports where a proposal-like message stands.
func (s *State) Status(id ref.MessageID) Status {
	return s.status[id]
}

// AcceptedBy returns the message that accepted id, if any.
func (s *State) AcceptedBy(id ref.MessageID) (ref.MessageID, bool) {
	accepting, ok := s.acceptedBy[id]
	return accepting, ok
}

// IsRetracted reports whether the sender withdrew the message.
func (s *State) IsRetracted(id ref.MessageID) bool { return s.retracted[id] }

// collect returns, in ascending order, the ids of messages that
// satisfy keep.
func (s *State) collect(keep func(convlog.Message) bool) []ref.MessageID {
	var ids []ref.MessageID
	for _, message := range s.messages {
		if keep(message) {
			ids = append(ids, message.ID)
		}
	}
	return ids
}

// Pending returns the open proposals, claims and cancellation
// proposals, oldest first.
func (s *State) Pending() []ref.MessageID {
	return s.collect(func(message convlog.Message) bool {
		return s.status[message.ID] == Pending
	})
}

// Agreements returns the Proposes and Claims messages that are in
// force, oldest first.
func (s *State) Agreements() []ref.MessageID {
	return s.collect(s.isAgreement)
}

// IsAgreement reports whether id is an agreement in force.
func (s *State) IsAgreement(id ref.MessageID) bool {
	message, ok := s.Message(id)
	return ok && s.isAgreement(message)
}

func (s *State) isAgreement(message convlog.Message) bool {
	return message.Act != convlog.ProposesToCancel && s.status[message.ID] == Accepted
}

// Cancellations returns the accepted ProposesToCancel messages, oldest
// first.
func (s *State) Cancellations() []ref.MessageID {
	return s.collect(func(message convlog.Message) bool {
		return message.Act == convlog.ProposesToCancel && s.status[message.ID] == Accepted
	})
}

// Clauses returns what a Proposes or Claims message puts forward: its
// effects, or the message itself when it has none. Other messages
// have no clauses.
func (s *State) Clauses(id ref.MessageID) []ref.MessageID {
	message, ok := s.Message(id)
	if !ok || (message.Act != convlog.Proposes && message.Act != convlog.Claims) {
		return nil
	}
	if len(message.Effects) == 0 {
		return []ref.MessageID{id}
	}
	return slices.Clone(message.Effects)
}

// MessagesBySender returns the ids sent by sender, oldest first.
func (s *State) MessagesBySender(sender ref.AtomID) []ref.MessageID {
	return s.collect(func(message convlog.Message) bool { return message.Sender == sender })
}

// MessagesByRecency returns the view newest first.
func (s *State) MessagesByRecency() []convlog.Message {
	recent := slices.Clone(s.messages)
	slices.Reverse(recent)
	return recent
}
