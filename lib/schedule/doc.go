// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schedule runs cancellable one-shot tasks at a given time.
//
// Every task belongs to a key, in practice the conversation it speaks
// in. [Scheduler.CancelKey] discards all not-yet-started tasks of a
// key at once, which is what conversation deactivation does. Each
// task also has its own [Handle].
//
// Guarantees:
//
//   - a task runs at most once, and never before its time
//   - tasks for different instants start in time order; tasks for the
//     same instant start in scheduling order
//   - with the real clock, a task never runs on the caller's stack
//   - cancelling a task that already started does nothing
//   - Close discards everything pending and stops every timer
//
// Tasks run one at a time. Whichever timer fires first drains every
// due task in order; timers firing meanwhile leave their tasks to that
// drain. A task that panics is recovered and logged, and the following
// tasks still run.
package schedule
