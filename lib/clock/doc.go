// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the injectable time source for the debug bot.
//
// Nothing outside this package calls time.Now, time.After or
// time.AfterFunc directly. Components that wait or classify by
// elapsed time take a Clock: Real() in the binary, Fake() in tests.
//
// A FakeClock only moves when a test calls Advance or AdvanceTo, and
// it fires due timers in deadline order inside that call:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	scheduler := schedule.New(fake, nil)
//	scheduler.After(conversation, 3*time.Second, send)
//	fake.Advance(3 * time.Second) // send runs here
//
// When a goroutine other than the test registers the timer, call
// WaitForTimers first so the Advance cannot race the registration.
package clock
