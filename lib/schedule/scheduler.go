// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/debugbot/lib/clock"
	"github.com/bureau-foundation/debugbot/lib/ref"
)

// Scheduler holds pending tasks. Safe for concurrent use.
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	queue    taskQueue
	byKey    map[ref.ConversationID]map[*task]struct{}
	sequence uint64
	closed   bool

	// draining is set while one goroutine runs due tasks; a timer
	// firing meanwhile sets rescan instead of draining concurrently,
	// so tasks start in time order.
	draining bool
	rescan   bool
}

// Handle refers to one scheduled task.
type Handle struct {
	scheduler *Scheduler
	task      *task
}

type task struct {
	key      ref.ConversationID
	at       time.Time
	sequence uint64
	run      func()
	timer    *clock.Timer
	// index is the position in the queue, -1 once removed.
	index int
}

// New returns a Scheduler driven by clk. A nil logger discards.
func New(clk clock.Clock, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		clock:  clk,
		logger: logger,
		byKey:  make(map[ref.ConversationID]map[*task]struct{}),
	}
}

// Schedule runs fn at or after at. A time in the past runs fn as soon
// as possible. After Close, Schedule returns a handle whose task never
// runs.
func (s *Scheduler) Schedule(key ref.ConversationID, at time.Time, fn func()) *Handle {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return &Handle{scheduler: s, task: &task{index: -1}}
	}
	s.sequence++
	entry := &task{key: key, at: at, sequence: s.sequence, run: fn}
	heap.Push(&s.queue, entry)
	tasks := s.byKey[key]
	if tasks == nil {
		tasks = make(map[*task]struct{})
		s.byKey[key] = tasks
	}
	tasks[entry] = struct{}{}
	delay := at.Sub(s.clock.Now())
	s.mu.Unlock()

	// The fake clock runs a non-positive delay synchronously, so the
	// timer is created without holding mu.
	timer := s.clock.AfterFunc(delay, s.drain)

	s.mu.Lock()
	if entry.index >= 0 {
		entry.timer = timer
	}
	s.mu.Unlock()
	return &Handle{scheduler: s, task: entry}
}

// After runs fn once delay has elapsed.
func (s *Scheduler) After(key ref.ConversationID, delay time.Duration, fn func()) *Handle {
	return s.Schedule(key, s.clock.Now().Add(delay), fn)
}

// Cancel discards the task if it has not started. It reports whether
// the task was discarded.
func (h *Handle) Cancel() bool {
	s := h.scheduler
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(h.task)
}

// At returns the time the task was scheduled for.
func (h *Handle) At() time.Time { return h.task.at }

// CancelKey discards every pending task of key and returns how many
// were discarded.
func (s *Scheduler) CancelKey(key ref.ConversationID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancelled := 0
	for entry := range s.byKey[key] {
		if s.removeLocked(entry) {
			cancelled++
		}
	}
	if cancelled > 0 {
		s.logger.Debug("scheduled tasks cancelled", "conversation_id", key, "count", cancelled)
	}
	return cancelled
}

// Pending returns the number of tasks waiting to run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// PendingFor returns the number of tasks of key waiting to run.
func (s *Scheduler) PendingFor(key ref.ConversationID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byKey[key])
}

// Close discards every pending task. Tasks already running finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for s.queue.Len() > 0 {
		s.removeLocked(s.queue[0])
	}
}

// removeLocked takes entry out of the queue and stops its timer.
func (s *Scheduler) removeLocked(entry *task) bool {
	if entry.index < 0 {
		return false
	}
	heap.Remove(&s.queue, entry.index)
	s.forgetLocked(entry)
	if entry.timer != nil {
		entry.timer.Stop()
	}
	return true
}

func (s *Scheduler) forgetLocked(entry *task) {
	if tasks := s.byKey[entry.key]; tasks != nil {
		delete(tasks, entry)
		if len(tasks) == 0 {
			delete(s.byKey, entry.key)
		}
	}
}

// drain runs every due task in order. It is the callback of every
// task timer, and it may be entered from inside a running task when
// that task schedules work that is already due.
func (s *Scheduler) drain() {
	s.mu.Lock()
	if s.draining {
		s.rescan = true
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	for {
		if entry := s.popDue(); entry != nil {
			s.execute(entry)
			continue
		}
		s.mu.Lock()
		if s.rescan {
			s.rescan = false
			s.mu.Unlock()
			continue
		}
		s.draining = false
		s.mu.Unlock()
		return
	}
}

func (s *Scheduler) popDue() *task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue.Len() == 0 || s.queue[0].at.After(s.clock.Now()) {
		return nil
	}
	entry := heap.Pop(&s.queue).(*task)
	s.forgetLocked(entry)
	if entry.timer != nil {
		entry.timer.Stop()
	}
	return entry
}

func (s *Scheduler) execute(entry *task) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("scheduled task panicked",
				"conversation_id", entry.key,
				"scheduled_at", entry.at,
				"panic", fmt.Sprint(recovered),
			)
		}
	}()
	entry.run()
}

// taskQueue is a min-heap ordered by (at, sequence).
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if !q[i].at.Equal(q[j].at) {
		return q[i].at.Before(q[j].at)
	}
	return q[i].sequence < q[j].sequence
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(value any) {
	entry := value.(*task)
	entry.index = len(*q)
	*q = append(*q, entry)
}

func (q *taskQueue) Pop() any {
	old := *q
	last := len(old) - 1
	entry := old[last]
	old[last] = nil
	entry.index = -1
	*q = old[:last]
	return entry
}
