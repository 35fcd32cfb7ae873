// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// MessageID identifies one message in a conversation log. Messages
// reference each other by MessageID when they propose, accept, reject,
// retract, or claim.
type MessageID struct {
	id string
}

// ParseMessageID validates and wraps a raw message ID.
func ParseMessageID(raw string) (MessageID, error) {
	if err := validateOpaque("message ID", raw); err != nil {
		return MessageID{}, err
	}
	return MessageID{id: raw}, nil
}

// MustParseMessageID is like ParseMessageID but panics on error. Use in tests and
// static initialization where the input is known-valid.
func MustParseMessageID(raw string) MessageID {
	parsed, err := ParseMessageID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseMessageID(%q): %v", raw, err))
	}
	return parsed
}

// String returns the raw identifier.
func (r MessageID) String() string { return r.id }

// IsZero reports whether the MessageID is unset.
func (r MessageID) IsZero() bool { return r.id == "" }

// Compare orders identifiers lexically, returning -1, 0 or +1.
func (r MessageID) Compare(other MessageID) int {
	switch {
	case r.id < other.id:
		return -1
	case r.id > other.id:
		return 1
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (r MessageID) MarshalText() ([]byte, error) {
	if r.id == "" {
		return nil, nil
	}
	return []byte(r.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input
// produces the zero value.
func (r *MessageID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*r = MessageID{}
		return nil
	}
	parsed, err := ParseMessageID(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
