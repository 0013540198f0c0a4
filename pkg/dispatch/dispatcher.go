package dispatch

import (
	"context"
	"sync"

	"github.com/dd0wney/cluso-graphview/pkg/logging"
)

// Completion is applied on the owner's goroutine after its task finished.
type Completion func()

// Task performs blocking work and returns the completion to apply, or nil.
type Task func(ctx context.Context) Completion

// Dispatcher pairs a Pool with a completion mailbox.
type Dispatcher struct {
	pool   *Pool
	ctx    context.Context
	cancel context.CancelFunc
	logger logging.Logger

	inflight sync.WaitGroup

	mu      sync.Mutex
	mailbox []Completion
	notify  chan struct{}
	closed  bool

	// backlog holds tasks that found the pool queue full, in submission
	// order. A single feeder goroutine moves them into the pool.
	backlog []func()
	feeding bool
}

// New creates a Dispatcher with the given number of workers.
func New(workers int, logger logging.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With(logging.Component("dispatch"))
	pool, err := NewPool(workers, logger)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		pool:   pool,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		notify: make(chan struct{}, 1),
	}, nil
}

// Go runs task on the pool without blocking the caller. When the pool queue
// is full the task waits in an unbounded backlog. The returned completion is
// queued for Drain. It reports false when the dispatcher is closed.
func (d *Dispatcher) Go(name string, task Task) bool {
	job := func() {
		defer d.inflight.Done()
		if done := task(d.ctx); done != nil {
			d.post(done)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Debug("task rejected after close", logging.Operation(name))
		return false
	}
	d.inflight.Add(1)
	if !d.feeding && d.pool.TrySubmit(job) {
		return true
	}
	d.backlog = append(d.backlog, job)
	if !d.feeding {
		d.feeding = true
		go d.feed()
	}
	return true
}

// Backlog reports how many tasks are waiting for room in the pool queue.
func (d *Dispatcher) Backlog() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.backlog)
}

// feed moves backlogged tasks into the pool, blocking on the pool queue
// instead of the caller.
func (d *Dispatcher) feed() {
	for {
		d.mu.Lock()
		if len(d.backlog) == 0 {
			d.feeding = false
			d.mu.Unlock()
			return
		}
		job := d.backlog[0]
		d.backlog[0] = nil
		d.backlog = d.backlog[1:]
		d.mu.Unlock()

		if !d.pool.Submit(job) {
			d.inflight.Done()
		}
	}
}

// Wait blocks until every task submitted so far has finished and posted its
// completion. Completions still need Drain.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

func (d *Dispatcher) post(c Completion) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.mailbox = append(d.mailbox, c)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Ready is signalled (coalesced) whenever completions are waiting.
func (d *Dispatcher) Ready() <-chan struct{} { return d.notify }

// Pending reports the number of queued completions.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.mailbox)
}

// Drain applies every queued completion on the calling goroutine, in the
// order they were posted, and returns how many ran.
func (d *Dispatcher) Drain() int {
	d.mu.Lock()
	batch := d.mailbox
	d.mailbox = nil
	d.mu.Unlock()

	for _, c := range batch {
		c()
	}
	return len(batch)
}

// Close cancels in-flight tasks, waits for workers and discards completions
// that arrive afterwards.
func (d *Dispatcher) Close() {
	d.cancel()
	d.mu.Lock()
	d.closed = true
	dropped := len(d.backlog)
	d.backlog = nil
	d.mu.Unlock()
	for range dropped {
		d.inflight.Done()
	}

	d.pool.Close()
	d.mu.Lock()
	d.mailbox = nil
	d.mu.Unlock()
}
