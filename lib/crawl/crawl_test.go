// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crawl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/bureau-foundation/debugbot/lib/clock"
	"github.com/bureau-foundation/debugbot/lib/convlog"
	"github.com/bureau-foundation/debugbot/lib/ref"
	"github.com/bureau-foundation/debugbot/lib/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	epoch        = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	human        = ref.MustParseAtomID("atom:human")
	conversation = ref.MustParseConversationID("conn:crawl")
)

func textMessage(id string, offset time.Duration) convlog.Message {
	return convlog.Message{
		ID:           ref.MustParseMessageID(id),
		Conversation: conversation,
		Sender:       human,
		Timestamp:    epoch.Add(offset),
		Act:          convlog.Plain,
		Text:         id,
	}
}

func seededLog(t *testing.T, ids ...string) *convlog.Log {
	t.Helper()
	log := convlog.NewLog()
	for index, id := range ids {
		if _, err := log.Append(textMessage(id, time.Duration(index)*time.Second)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return log
}

// countingSource counts listings and can hold them until released.
// A held listing that sees its context end reports it on cancelled.
type countingSource struct {
	inner     Source
	calls     atomic.Int32
	started   chan struct{}
	release   chan struct{}
	cancelled chan struct{}
}

func (s *countingSource) Messages(ctx context.Context, conversation ref.ConversationID) ([]convlog.Message, error) {
	s.calls.Add(1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			if s.cancelled != nil {
				s.cancelled <- struct{}{}
			}
			return nil, ctx.Err()
		}
	}
	return s.inner.Messages(ctx, conversation)
}

// stallingWalker visits its messages, then blocks until its context
// ends.
type stallingWalker struct {
	messages []convlog.Message
	visited  chan struct{}
}

func (w *stallingWalker) Messages(ctx context.Context, conversation ref.ConversationID) ([]convlog.Message, error) {
	return nil, errors.New("listing is not used for walkers")
}

func (w *stallingWalker) Walk(ctx context.Context, _ ref.ConversationID, visit func(convlog.Message) error) error {
	for _, message := range w.messages {
		if err := visit(message); err != nil {
			return err
		}
	}
	close(w.visited)
	<-ctx.Done()
	return ctx.Err()
}

func TestSourceCrawlerListsConversation(t *testing.T) {
	t.Parallel()
	crawler := NewSourceCrawler(LogSource(seededLog(t, "a", "b", "c")), clock.Fake(epoch))
	result, err := crawler.Crawl(context.Background(), conversation, time.Second)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(result.Messages) != 3 || result.Partial || result.Cached {
		t.Errorf("result = %+v, want 3 full uncached messages", result)
	}
}

func TestSourceCrawlerTimesOut(t *testing.T) {
	t.Parallel()
	fake := clock.Fake(epoch)
	source := &countingSource{
		inner:   LogSource(seededLog(t, "a")),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	crawler := NewSourceCrawler(source, fake)

	type crawled struct {
		result Result
		err    error
	}
	done := make(chan crawled, 1)
	go func() {
		result, err := crawler.Crawl(context.Background(), conversation, 60*time.Second)
		done <- crawled{result, err}
	}()

	testutil.RequireReceive(t, source.started, 5*time.Second, "source listing started")
	fake.WaitForTimers(1)
	fake.Advance(60 * time.Second)

	got := testutil.RequireReceive(t, done, 5*time.Second, "crawl result")
	if !errors.Is(got.err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", got.err)
	}
	if !got.result.Partial {
		t.Error("timed-out result is not partial")
	}
	if got.result.Elapsed != 60*time.Second {
		t.Errorf("Elapsed = %v, want 60s", got.result.Elapsed)
	}
}

func TestSourceCrawlerTimeoutKeepsWalkedMessages(t *testing.T) {
	t.Parallel()
	fake := clock.Fake(epoch)
	source := &stallingWalker{
		messages: []convlog.Message{textMessage("a", 0), textMessage("b", time.Second)},
		visited:  make(chan struct{}),
	}
	crawler := NewSourceCrawler(source, fake)

	type crawled struct {
		result Result
		err    error
	}
	done := make(chan crawled, 1)
	go func() {
		result, err := crawler.Crawl(context.Background(), conversation, 30*time.Second)
		done <- crawled{result, err}
	}()

	testutil.RequireClosed(t, source.visited, 5*time.Second, "walker visited its messages")
	fake.WaitForTimers(1)
	fake.Advance(30 * time.Second)

	got := testutil.RequireReceive(t, done, 5*time.Second, "crawl result")
	if !errors.Is(got.err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", got.err)
	}
	if !got.result.Partial {
		t.Error("timed-out result is not partial")
	}
	if len(got.result.Messages) != 2 {
		t.Errorf("partial result has %d messages, want the 2 visited before the deadline", len(got.result.Messages))
	}
}

func TestSourceCrawlerStopsDeadlineTimer(t *testing.T) {
	t.Parallel()
	fake := clock.Fake(epoch)
	crawler := NewSourceCrawler(LogSource(seededLog(t, "a")), fake)
	if _, err := crawler.Crawl(context.Background(), conversation, time.Minute); err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if pending := fake.PendingCount(); pending != 0 {
		t.Errorf("pending timers after a finished crawl = %d, want 0", pending)
	}
}

type failingSource struct{ err error }

func (s failingSource) Messages(context.Context, ref.ConversationID) ([]convlog.Message, error) {
	return nil, s.err
}

func TestSourceCrawlerWrapsSourceErrors(t *testing.T) {
	t.Parallel()
	failure := errors.New("database is locked")
	crawler := NewSourceCrawler(failingSource{err: failure}, clock.Fake(epoch))
	_, err := crawler.Crawl(context.Background(), conversation, time.Second)
	if !errors.Is(err, failure) {
		t.Errorf("err = %v, want wrapped %v", err, failure)
	}
}

func TestBoundedCoalescesConcurrentCrawls(t *testing.T) {
	t.Parallel()
	source := &countingSource{
		inner:   LogSource(seededLog(t, "a", "b")),
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	bounded := NewBounded(NewSourceCrawler(source, nil), time.Minute, nil)

	const callers = 3
	var wait sync.WaitGroup
	counts := make(chan int, callers)
	for range callers {
		wait.Add(1)
		go func() {
			defer wait.Done()
			result, err := bounded.Crawl(context.Background(), conversation, 0)
			if err != nil {
				t.Errorf("Crawl: %v", err)
			}
			counts <- len(result.Messages)
		}()
	}
	testutil.RequireReceive(t, source.started, 5*time.Second, "first listing")
	// Give the other callers time to join the in-flight crawl before
	// it finishes.
	time.Sleep(50 * time.Millisecond) //nolint:realclock joining an in-flight singleflight call
	close(source.release)
	wait.Wait()
	close(counts)

	for count := range counts {
		if count != 2 {
			t.Errorf("caller saw %d messages, want 2", count)
		}
	}
	if calls := source.calls.Load(); calls != 1 {
		t.Errorf("source listed %d times, want 1", calls)
	}
}

func TestBoundedCallerCancellation(t *testing.T) {
	t.Parallel()
	source := &countingSource{
		inner:   LogSource(seededLog(t, "a")),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	bounded := NewBounded(NewSourceCrawler(source, nil), time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := bounded.Crawl(ctx, conversation, 0)
		errs <- err
	}()
	testutil.RequireReceive(t, source.started, 5*time.Second, "listing started")
	cancel()
	if err := testutil.RequireReceive(t, errs, 5*time.Second, "cancelled crawl"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}

	// A later caller starts a fresh crawl.
	close(source.release)
	result, err := bounded.Crawl(context.Background(), conversation, 0)
	if err != nil || len(result.Messages) != 1 {
		t.Errorf("later crawl = (%d messages, %v), want (1, nil)", len(result.Messages), err)
	}
}

func TestBoundedAbandonedCrawlIsCancelled(t *testing.T) {
	t.Parallel()
	fake := clock.Fake(epoch)
	source := &countingSource{
		inner:     LogSource(seededLog(t, "a")),
		started:   make(chan struct{}, 1),
		release:   make(chan struct{}),
		cancelled: make(chan struct{}, 1),
	}
	bounded := NewBounded(NewSourceCrawler(source, fake), time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := bounded.Crawl(ctx, conversation, 0)
		errs <- err
	}()
	testutil.RequireReceive(t, source.started, 5*time.Second, "listing started")
	fake.WaitForTimers(1)
	cancel()

	if err := testutil.RequireReceive(t, errs, 5*time.Second, "cancelled crawl"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	testutil.RequireReceive(t, source.cancelled, 5*time.Second, "source saw the crawl cancelled")
	deadline := time.Now().Add(5 * time.Second) //nolint:realclock test hang prevention
	for fake.PendingCount() != 0 {
		if time.Now().After(deadline) { //nolint:realclock test hang prevention
			t.Fatalf("pending crawl timers = %d after the only caller left, want 0", fake.PendingCount())
		}
		time.Sleep(time.Millisecond) //nolint:realclock waiting for the crawl goroutine to stop its timer
	}
}

func TestBoundedKeepsCrawlForRemainingCaller(t *testing.T) {
	t.Parallel()
	source := &countingSource{
		inner:     LogSource(seededLog(t, "a")),
		started:   make(chan struct{}, 1),
		release:   make(chan struct{}),
		cancelled: make(chan struct{}, 1),
	}
	bounded := NewBounded(NewSourceCrawler(source, nil), time.Minute, nil)

	leaving, leave := context.WithCancel(context.Background())
	left := make(chan error, 1)
	go func() {
		_, err := bounded.Crawl(leaving, conversation, 0)
		left <- err
	}()
	testutil.RequireReceive(t, source.started, 5*time.Second, "listing started")

	stayed := make(chan int, 1)
	go func() {
		result, err := bounded.Crawl(context.Background(), conversation, 0)
		if err != nil {
			t.Errorf("remaining caller: %v", err)
		}
		stayed <- len(result.Messages)
	}()
	// Give the second caller time to join the in-flight crawl.
	time.Sleep(50 * time.Millisecond) //nolint:realclock joining an in-flight singleflight call
	leave()
	testutil.RequireReceive(t, left, 5*time.Second, "leaving caller")

	close(source.release)
	if count := testutil.RequireReceive(t, stayed, 5*time.Second, "remaining caller"); count != 1 {
		t.Errorf("remaining caller saw %d messages, want 1", count)
	}
	if calls := source.calls.Load(); calls != 1 {
		t.Errorf("source listed %d times, want 1", calls)
	}
	select {
	case <-source.cancelled:
		t.Error("crawl was cancelled while a caller still waited")
	default:
	}
}

func TestCacheEagerAnswersLocally(t *testing.T) {
	t.Parallel()
	log := seededLog(t, "a", "b")
	source := &countingSource{inner: LogSource(log)}
	cache := NewCache(NewSourceCrawler(source, clock.Fake(epoch)), true, nil)
	ctx := context.Background()

	first, err := cache.Crawl(ctx, conversation, time.Second)
	if err != nil || first.Cached {
		t.Fatalf("first crawl = (%+v, %v), want an uncached result", first, err)
	}

	observed := textMessage("c", 5*time.Second)
	if _, err := log.Append(observed); err != nil {
		t.Fatalf("Append: %v", err)
	}
	cache.Observe(observed)

	second, err := cache.Crawl(ctx, conversation, time.Second)
	if err != nil {
		t.Fatalf("second crawl: %v", err)
	}
	if !second.Cached || len(second.Messages) != 3 {
		t.Errorf("second crawl = %d messages cached=%v, want 3 cached", len(second.Messages), second.Cached)
	}
	if calls := source.calls.Load(); calls != 1 {
		t.Errorf("source listed %d times, want 1", calls)
	}
}

func TestCacheLazyForwards(t *testing.T) {
	t.Parallel()
	source := &countingSource{inner: LogSource(seededLog(t, "a"))}
	cache := NewCache(NewSourceCrawler(source, clock.Fake(epoch)), true, nil)
	ctx := context.Background()

	if _, err := cache.Crawl(ctx, conversation, time.Second); err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if !cache.SetEager(false) {
		t.Fatal("SetEager(false) reported no change")
	}
	if cache.SetEager(false) {
		t.Error("second SetEager(false) reported a change")
	}
	cache.Observe(textMessage("ignored", time.Minute))

	result, err := cache.Crawl(ctx, conversation, time.Second)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if result.Cached {
		t.Error("lazy cache answered locally")
	}
	if calls := source.calls.Load(); calls != 2 {
		t.Errorf("source listed %d times, want 2", calls)
	}
}
