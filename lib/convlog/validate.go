// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convlog

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/debugbot/lib/codec"
	"github.com/bureau-foundation/debugbot/lib/ref"
)

// IssueKind names one class of structural problem in a message set.
type IssueKind string

const (
	IssueDuplicateID    IssueKind = "duplicate_id"
	IssueDanglingEffect IssueKind = "dangling_effect"
	IssueEffectOnPlain  IssueKind = "effect_on_plain"
	IssueIllTypedTarget IssueKind = "ill_typed_target"
	IssueSelfReference  IssueKind = "self_reference"
	IssueMissingEffects IssueKind = "missing_effects"
	IssueInvalidMessage IssueKind = "invalid_message"
)

// Issue is one problem found by Validate.
type Issue struct {
	Kind    IssueKind
	Message ref.MessageID
	// Target is the referenced message, when the issue is about a
	// reference.
	Target ref.MessageID
}

func (i Issue) String() string {
	if i.Target.IsZero() {
		return fmt.Sprintf("%s: %s", i.Kind, i.Message)
	}
	return fmt.Sprintf("%s: %s -> %s", i.Kind, i.Message, i.Target)
}

// Validate reports structural problems in a crawled message set. The
// set stays usable: reconstruction ignores the same references that
// Validate reports as dangling or ill-typed. Duplicate and invalid
// messages are reported first, then reference problems in Compare
// order.
func Validate(messages []Message) []Issue {
	var issues []Issue
	byID := make(map[ref.MessageID]Message, len(messages))
	for _, message := range Sorted(messages) {
		if err := message.Validate(); err != nil {
			issues = append(issues, Issue{Kind: IssueInvalidMessage, Message: message.ID})
			continue
		}
		if _, exists := byID[message.ID]; exists {
			issues = append(issues, Issue{Kind: IssueDuplicateID, Message: message.ID})
			continue
		}
		byID[message.ID] = message
	}

	checked := make(map[ref.MessageID]bool, len(byID))
	for _, message := range Sorted(messages) {
		if _, valid := byID[message.ID]; !valid || checked[message.ID] {
			continue
		}
		checked[message.ID] = true
		if message.Act == Plain {
			if len(message.Effects) > 0 {
				issues = append(issues, Issue{Kind: IssueEffectOnPlain, Message: message.ID})
			}
			continue
		}
		if message.Act.IsResponse() || message.Act == ProposesToCancel {
			if len(message.Effects) == 0 {
				issues = append(issues, Issue{Kind: IssueMissingEffects, Message: message.ID})
			}
		}
		for _, effect := range message.Effects {
			if effect == message.ID {
				issues = append(issues, Issue{Kind: IssueSelfReference, Message: message.ID, Target: effect})
				continue
			}
			target, ok := byID[effect]
			if !ok {
				issues = append(issues, Issue{Kind: IssueDanglingEffect, Message: message.ID, Target: effect})
				continue
			}
			if !targetFits(message.Act, target.Act) {
				issues = append(issues, Issue{Kind: IssueIllTypedTarget, Message: message.ID, Target: effect})
			}
		}
	}
	return issues
}

// targetFits reports whether a message with act may reference a
// message with targetAct.
func targetFits(act, targetAct SpeechAct) bool {
	switch act {
	case Accepts, Rejects:
		return targetAct.IsProposal()
	case ProposesToCancel:
		return targetAct == Proposes || targetAct == Claims
	}
	return true
}

// Digest returns the hex BLAKE3-256 digest of the deterministic CBOR
// encoding of messages in Compare order, plus the encoded size in
// bytes. Two crawls that observed the same set produce the same
// digest regardless of crawl order.
func Digest(messages []Message) (string, int, error) {
	hasher := blake3.New()
	size := 0
	for _, message := range Sorted(messages) {
		data, err := codec.Marshal(message)
		if err != nil {
			return "", 0, fmt.Errorf("encoding message %s: %w", message.ID, err)
		}
		size += len(data)
		hasher.Write(data)
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}
