// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package textcommand

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// UsageName is the name of the built-in usage binding.
const UsageName = "usage"

// UsagePattern matches the requests for usage text.
const UsagePattern = `usage|\?|help|debug`

// Handler runs a matched command against target, the per-conversation
// context the caller dispatches with.
type Handler[C any] func(ctx context.Context, target C, args Args)

// Replier sends text back to target. The table uses it to answer
// usage requests.
type Replier[C any] func(ctx context.Context, target C, text string)

// Binding ties a pattern to a handler.
type Binding[C any] struct {
	Name string
	// Help is the one-line description in the usage text.
	Help string
	// Pattern is matched against the whole normalized text. Anchors
	// and the case-insensitive flag are added by the table.
	Pattern string
	Handle  Handler[C]
}

// UsageBinding returns the usage binding for explicit placement. Its
// handler is supplied by the table.
func UsageBinding[C any]() Binding[C] {
	return Binding[C]{
		Name:    UsageName,
		Help:    "print this usage text",
		Pattern: UsagePattern,
	}
}

type compiled[C any] struct {
	Binding[C]
	expression *regexp.Regexp
}

// Table is an immutable, ordered set of bindings. Safe for concurrent
// use.
type Table[C any] struct {
	bindings []compiled[C]
	usage    string
}

// NewTable compiles bindings in order. Names must be unique and every
// binding except the usage binding needs a handler.
func NewTable[C any](reply Replier[C], bindings ...Binding[C]) (*Table[C], error) {
	if reply == nil {
		return nil, fmt.Errorf("textcommand: a replier is required")
	}
	hasUsage := false
	for _, binding := range bindings {
		if binding.Name == UsageName {
			hasUsage = true
		}
	}
	if !hasUsage {
		bindings = append(bindings, UsageBinding[C]())
	}

	table := &Table[C]{}
	seen := make(map[string]bool, len(bindings))
	for _, binding := range bindings {
		if binding.Name == "" {
			return nil, fmt.Errorf("textcommand: binding with pattern %q has no name", binding.Pattern)
		}
		if seen[binding.Name] {
			return nil, fmt.Errorf("textcommand: duplicate binding %q", binding.Name)
		}
		seen[binding.Name] = true

		expression, err := regexp.Compile(`(?i)^(?:` + binding.Pattern + `)$`)
		if err != nil {
			return nil, fmt.Errorf("textcommand: binding %q: %w", binding.Name, err)
		}
		if binding.Name == UsageName && binding.Handle == nil {
			binding.Handle = func(ctx context.Context, target C, _ Args) {
				reply(ctx, target, table.usage)
			}
		}
		if binding.Handle == nil {
			return nil, fmt.Errorf("textcommand: binding %q has no handler", binding.Name)
		}
		table.bindings = append(table.bindings, compiled[C]{Binding: binding, expression: expression})
	}
	table.usage = renderUsage(table.bindings)
	return table, nil
}

// MustNewTable is like NewTable but panics on error. Command tables
// are static, so a failure is a programming error.
func MustNewTable[C any](reply Replier[C], bindings ...Binding[C]) *Table[C] {
	table, err := NewTable(reply, bindings...)
	if err != nil {
		panic(err)
	}
	return table
}

// Match is the outcome of a successful lookup.
type Match[C any] struct {
	Name   string
	Args   Args
	handle Handler[C]
}

// Invoke runs the matched handler.
func (m Match[C]) Invoke(ctx context.Context, target C) {
	m.handle(ctx, target, m.Args)
}

// Match finds the first binding whose pattern matches text.
func (t *Table[C]) Match(text string) (Match[C], bool) {
	normalized := Normalize(text)
	for _, binding := range t.bindings {
		indices := binding.expression.FindStringSubmatchIndex(normalized)
		if indices == nil {
			continue
		}
		return Match[C]{
			Name:   binding.Name,
			Args:   newArgs(normalized, indices),
			handle: binding.Handle,
		}, true
	}
	return Match[C]{}, false
}

// Dispatch matches text and invokes the winning handler, or fallback
// when nothing matches. It returns the matched binding name, or ""
// for the fallback.
func (t *Table[C]) Dispatch(ctx context.Context, target C, text string, fallback Handler[C]) string {
	match, ok := t.Match(text)
	if !ok {
		if fallback != nil {
			fallback(ctx, target, Args{})
		}
		return ""
	}
	match.Invoke(ctx, target)
	return match.Name
}

// Usage returns the usage text: a heading and one line per binding in
// table order.
func (t *Table[C]) Usage() string { return t.usage }

// Names returns the binding names in table order.
func (t *Table[C]) Names() []string {
	names := make([]string, len(t.bindings))
	for index, binding := range t.bindings {
		names[index] = binding.Name
	}
	return names
}

func renderUsage[C any](bindings []compiled[C]) string {
	var builder strings.Builder
	builder.WriteString("# Usage:\n")
	for _, binding := range bindings {
		fmt.Fprintf(&builder, "* %s: %s\n", binding.Name, binding.Help)
	}
	return strings.TrimSuffix(builder.String(), "\n")
}

// Normalize trims text and collapses internal whitespace runs.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
