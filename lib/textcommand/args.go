// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package textcommand

import (
	"strconv"
	"strings"
)

// Args holds the capture groups of a match. Group 0 is the whole
// normalized text. Absent groups read as "".
type Args struct {
	groups  []string
	present []bool
}

func newArgs(normalized string, indices []int) Args {
	count := len(indices) / 2
	args := Args{groups: make([]string, count), present: make([]bool, count)}
	for group := range count {
		start, end := indices[2*group], indices[2*group+1]
		if start < 0 {
			continue
		}
		args.groups[group] = strings.ToLower(normalized[start:end])
		args.present[group] = true
	}
	return args
}

// Text returns the whole normalized, lower-cased command text.
func (a Args) Text() string { return a.Group(0) }

// Len returns the number of groups including group 0.
func (a Args) Len() int { return len(a.groups) }

// Group returns capture group index, or "" when it did not take part
// in the match or does not exist.
func (a Args) Group(index int) string {
	if index < 0 || index >= len(a.groups) {
		return ""
	}
	return a.groups[index]
}

// Has reports whether group index took part in the match.
func (a Args) Has(index int) bool {
	return index >= 0 && index < len(a.present) && a.present[index]
}

// Int parses group index as a decimal integer in [minimum, maximum].
// Absent, malformed, and out-of-range values yield fallback.
func (a Args) Int(index, fallback, minimum, maximum int) int {
	if !a.Has(index) {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(a.Group(index)))
	if err != nil || value < minimum || value > maximum {
		return fallback
	}
	return value
}

// OneOf returns group index when it equals one of options. The second
// result is false when the group is absent or unrecognized.
func (a Args) OneOf(index int, options ...string) (string, bool) {
	if !a.Has(index) {
		return "", false
	}
	value := strings.TrimSpace(a.Group(index))
	for _, option := range options {
		if value == option {
			return value, true
		}
	}
	return "", false
}
