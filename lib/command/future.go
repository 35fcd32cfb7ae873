// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCancelled settles a future whose owner gave up on it.
var ErrCancelled = errors.New("command cancelled")

// Future is the eventual outcome of one environment operation. The
// zero value is not usable; create one with [NewFuture], [Go],
// [Resolved], or [Failed].
type Future[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	value     T
	err       error
	observers []func()
}

// NewFuture returns an unsettled future. The caller settles it with
// [Future.Resolve] or [Future.Reject].
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future already settled with value.
func Resolved[T any](value T) *Future[T] {
	future := NewFuture[T]()
	future.Resolve(value)
	return future
}

// Failed returns a future already settled with err.
func Failed[T any](err error) *Future[T] {
	future := NewFuture[T]()
	future.Reject(err)
	return future
}

// Go runs operation on its own goroutine and returns a future for its
// outcome. A panic in operation settles the future with an error.
func Go[T any](ctx context.Context, operation func(context.Context) (T, error)) *Future[T] {
	future := NewFuture[T]()
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				future.Reject(fmt.Errorf("command panicked: %v", recovered))
			}
		}()
		value, err := operation(ctx)
		if err != nil {
			future.Reject(err)
			return
		}
		future.Resolve(value)
	}()
	return future
}

// Resolve settles the future with value. It reports false when the
// future had already settled, in which case nothing changes.
func (f *Future[T]) Resolve(value T) bool {
	return f.settle(value, nil)
}

// Reject settles the future with err. A nil err is replaced by a
// generic failure so that a rejected future never looks successful.
func (f *Future[T]) Reject(err error) bool {
	if err == nil {
		err = errors.New("command failed")
	}
	var zero T
	return f.settle(zero, err)
}

// Cancel rejects the future with [ErrCancelled].
func (f *Future[T]) Cancel() bool {
	var zero T
	return f.settle(zero, ErrCancelled)
}

func (f *Future[T]) settle(value T, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value = value
	f.err = err
	observers := f.observers
	f.observers = nil
	close(f.done)
	f.mu.Unlock()

	for _, observer := range observers {
		observer()
	}
	return true
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Settled reports whether the future has an outcome.
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Wait blocks until the future settles or ctx is done. Abandoning the
// wait does not cancel the future.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("waiting for command: %w", ctx.Err())
	}
}

// Then registers callbacks for the outcome: onSuccess with the value,
// or onFailure with the error. Exactly one of them runs, once. On an
// unsettled future it runs on the goroutine that settles it; on a
// settled future it runs before Then returns. Either callback may be
// nil.
func (f *Future[T]) Then(onSuccess func(T), onFailure func(error)) {
	observer := func() {
		if f.err != nil {
			if onFailure != nil {
				onFailure(f.err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(f.value)
		}
	}

	f.mu.Lock()
	if !f.settled {
		f.observers = append(f.observers, observer)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	observer()
}
