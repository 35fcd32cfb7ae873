// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// AtomID identifies an atom, the party that owns one side of a
// conversation and authors its messages. The bot itself is an atom.
type AtomID struct {
	id string
}

// ParseAtomID validates and wraps a raw atom ID.
func ParseAtomID(raw string) (AtomID, error) {
	if err := validateOpaque("atom ID", raw); err != nil {
		return AtomID{}, err
	}
	return AtomID{id: raw}, nil
}

// MustParseAtomID is like ParseAtomID but panics on error. Use in tests and
// static initialization where the input is known-valid.
func MustParseAtomID(raw string) AtomID {
	parsed, err := ParseAtomID(raw)
	if err != nil {
		panic(fmt.Sprintf("ref.MustParseAtomID(%q): %v", raw, err))
	}
	return parsed
}

// String returns the raw identifier.
func (r AtomID) String() string { return r.id }

// IsZero reports whether the AtomID is unset.
func (r AtomID) IsZero() bool { return r.id == "" }

// Compare orders identifiers lexically, returning -1, 0 or +1.
func (r AtomID) Compare(other AtomID) int {
	switch {
	case r.id < other.id:
		return -1
	case r.id > other.id:
		return 1
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (r AtomID) MarshalText() ([]byte, error) {
	if r.id == "" {
		return nil, nil
	}
	return []byte(r.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input
// produces the zero value.
func (r *AtomID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*r = AtomID{}
		return nil
	}
	parsed, err := ParseAtomID(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
