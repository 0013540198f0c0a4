package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolExecutesTasks(t *testing.T) {
	pool, err := NewPool(4, nil)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(func() { atomic.AddInt64(&counter, 1) })
		}()
	}
	wg.Wait()
	pool.Close()

	if counter != 100 {
		t.Errorf("Expected counter 100, got %d", counter)
	}
}

func TestPoolSizeLimits(t *testing.T) {
	if _, err := NewPool(MaxWorkers+1, nil); !errors.Is(err, ErrTooManyWorkers) {
		t.Errorf("Expected ErrTooManyWorkers, got %v", err)
	}
	pool, err := NewPool(0, nil)
	if err != nil {
		t.Fatalf("NewPool(0): %v", err)
	}
	defer pool.Close()
	if pool.workers != 1 {
		t.Errorf("Expected 1 worker, got %d", pool.workers)
	}
}

func TestPoolSubmitAfterClose(t *testing.T) {
	pool, _ := NewPool(2, nil)
	pool.Close()
	pool.Close()

	if pool.Submit(func() {}) {
		t.Error("Submit should fail after Close")
	}
	if pool.TrySubmit(func() {}) {
		t.Error("TrySubmit should fail after Close")
	}
}

func TestPoolCloseRace(t *testing.T) {
	for iteration := 0; iteration < 50; iteration++ {
		pool, _ := NewPool(4, nil)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					pool.Submit(func() { time.Sleep(time.Millisecond) })
				}
			}()
		}
		time.Sleep(2 * time.Millisecond)
		pool.Close()
		wg.Wait()
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	pool, _ := NewPool(1, nil)
	var ran atomic.Bool
	pool.Submit(func() { panic("boom") })
	pool.Submit(func() { ran.Store(true) })
	pool.Close()

	if !ran.Load() {
		t.Error("Worker should survive a panicking task")
	}
}

func TestDispatcherDrainsInOrder(t *testing.T) {
	d, err := New(1, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	var applied []int
	for i := 0; i < 5; i++ {
		d.Go("test", func(context.Context) Completion {
			return func() { applied = append(applied, i) }
		})
	}
	d.Go("nil completion", func(context.Context) Completion { return nil })
	d.Wait()

	select {
	case <-d.Ready():
	default:
		t.Error("Ready should be signalled")
	}
	if d.Pending() != 5 {
		t.Fatalf("Expected 5 pending, got %d", d.Pending())
	}
	if n := d.Drain(); n != 5 {
		t.Errorf("Drain ran %d, want 5", n)
	}
	for i, v := range applied {
		if v != i {
			t.Fatalf("Completions out of order: %v", applied)
		}
	}
	if d.Drain() != 0 {
		t.Error("Second drain should be empty")
	}
}

func TestDispatcherCloseCancelsContext(t *testing.T) {
	d, _ := New(1, nil)
	started := make(chan struct{})
	var sawCancel atomic.Bool

	d.Go("blocking", func(ctx context.Context) Completion {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return func() { t.Error("completion after close must be discarded") }
	})
	<-started
	d.Close()

	if !sawCancel.Load() {
		t.Error("Task should observe cancellation")
	}
	if d.Drain() != 0 {
		t.Error("Mailbox should be empty after Close")
	}
	if d.Go("late", func(context.Context) Completion { return nil }) {
		t.Error("Go should fail after Close")
	}
}

func TestDispatcherGoDoesNotBlockWhenWorkersBusy(t *testing.T) {
	d, err := New(2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	release := make(chan struct{})
	var done atomic.Int64
	start := time.Now()
	for i := 0; i < 20; i++ {
		ok := d.Go("slow", func(ctx context.Context) Completion {
			select {
			case <-release:
			case <-ctx.Done():
			}
			done.Add(1)
			return func() {}
		})
		if !ok {
			t.Fatalf("Go %d rejected", i)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("Go blocked for %v with every worker busy", elapsed)
	}
	if d.Backlog() == 0 {
		t.Error("Expected tasks waiting in the backlog")
	}

	close(release)
	d.Wait()
	if got := done.Load(); got != 20 {
		t.Errorf("Expected 20 tasks to run, got %d", got)
	}
	if d.Backlog() != 0 {
		t.Errorf("Backlog should be empty, got %d", d.Backlog())
	}
	if n := d.Drain(); n != 20 {
		t.Errorf("Drain ran %d, want 20", n)
	}
}

func TestDispatcherCloseDropsBacklog(t *testing.T) {
	d, _ := New(1, nil)
	started := make(chan struct{})
	var ran atomic.Int64

	d.Go("blocking", func(ctx context.Context) Completion {
		close(started)
		<-ctx.Done()
		return nil
	})
	<-started
	for i := 0; i < 10; i++ {
		d.Go("queued", func(ctx context.Context) Completion {
			ran.Add(1)
			return nil
		})
	}

	finished := make(chan struct{})
	go func() {
		d.Close()
		d.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Close with a backlog did not return")
	}
	if ran.Load() > 10 {
		t.Errorf("Ran %d tasks, more than were submitted", ran.Load())
	}
}
