// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// ConversationID identifies a conversation: the log shared by exactly
// two atoms. Scheduling, pacing, and cancellation are all keyed by it.
type ConversationID struct {
	id string
}

// ParseConversationID validates and wraps a raw conversation ID.
func ParseConversationID(raw string) (ConversationID, error) {
	if err := validateOpaque("conversation ID", raw); err != nil {
		return ConversationID{}, err
	}
	return ConversationID{id: raw}, nil
}

// MustParseConversationID is like ParseConversationID but panics on error. Use in tests and
// static initialization where the input is known-valid.
func MustParseConversationID(raw string) ConversationID {
	parsed, err := ParseConversationID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseConversationID(%q): %v", raw, err))
	}
	return parsed
}

// String returns the raw identifier.
func (r ConversationID) String() string { return r.id }

// IsZero reports whether the ConversationID is unset.
func (r ConversationID) IsZero() bool { return r.id == "" }

// Compare orders identifiers lexically, returning -1, 0 or +1.
func (r ConversationID) Compare(other ConversationID) int {
	switch {
	case r.id < other.id:
		return -1
	case r.id > other.id:
		return 1
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (r ConversationID) MarshalText() ([]byte, error) {
	if r.id == "" {
		return nil, nil
	}
	return []byte(r.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input
// produces the zero value.
func (r *ConversationID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*r = ConversationID{}
		return nil
	}
	parsed, err := ParseConversationID(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
