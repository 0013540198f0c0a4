// Package dispatch runs blocking I/O off the engine goroutine. Tasks execute
// on a fixed worker pool; their completions are queued in a mailbox and
// applied later by whoever owns the engine, so engine state is only ever
// touched from one goroutine.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-graphview/pkg/logging"
)

// ErrTooManyWorkers is returned when the worker count exceeds MaxWorkers.
var ErrTooManyWorkers = fmt.Errorf("worker count exceeds maximum")

// MaxWorkers caps the pool size; the queue holds twice as many tasks.
const MaxWorkers = 1024

// Pool is a fixed set of worker goroutines reading from a bounded queue.
type Pool struct {
	workers int
	queue   chan func()
	wg      sync.WaitGroup
	once    sync.Once
	logger  logging.Logger

	mu     sync.RWMutex // guards queue against close during send
	closed bool
}

// NewPool starts a pool with the given number of workers (at least one).
func NewPool(workers int, logger logging.Logger) (*Pool, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	p := &Pool{
		workers: workers,
		queue:   make(chan func(), workers*2),
		logger:  logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p, nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panic recovered", logging.Any("panic", fmt.Sprint(r)))
		}
	}()
	task()
}

// Submit queues task, blocking while the queue is full. It returns false once
// the pool is closed.
func (p *Pool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.queue <- task
	return true
}

// TrySubmit queues task only if there is room.
func (p *Pool) TrySubmit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- task:
		return true
	default:
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	p.wg.Wait()
}
