// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// Fataler is the part of testing.TB the helpers need.
type Fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value from ch, failing the test when
// none arrives within timeout or ch is closed.
//
//	err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Run")
func RequireReceive[T any](t Fataler, ch <-chan T, timeout time.Duration, context ...any) T {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock bounds a hanging test
	defer timer.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed before a value arrived: %s", describe(context))
		}
		return value
	case <-timer.C:
		t.Fatalf("nothing received within %v: %s", timeout, describe(context))
	}
	var zero T
	return zero
}

// RequireSend sends value on ch, failing the test when ch does not
// take it within timeout.
//
//	testutil.RequireSend(t, events, event, 5*time.Second, "sending event")
func RequireSend[T any](t Fataler, ch chan<- T, value T, timeout time.Duration, context ...any) {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock bounds a hanging test
	defer timer.Stop()
	select {
	case ch <- value:
	case <-timer.C:
		t.Fatalf("send not taken within %v: %s", timeout, describe(context))
	}
}

// RequireClosed waits until ch is closed or yields a value, failing
// the test after timeout.
//
//	testutil.RequireClosed(t, future.Done(), 5*time.Second, "future settled")
func RequireClosed(t Fataler, ch <-chan struct{}, timeout time.Duration, context ...any) {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock bounds a hanging test
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
		t.Fatalf("channel still open after %v: %s", timeout, describe(context))
	}
}

// describe renders the optional context arguments: nothing, a single
// value, or a format string with its arguments.
func describe(context []any) string {
	switch {
	case len(context) == 0:
		return "(no context)"
	case len(context) == 1:
		return fmt.Sprint(context[0])
	}
	if format, ok := context[0].(string); ok {
		return fmt.Sprintf(format, context[1:]...)
	}
	return fmt.Sprint(context...)
}
