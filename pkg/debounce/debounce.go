// Package debounce implements a keyed trailing debouncer: scheduling a key
// again before its delay elapses cancels the earlier call and restarts the wait.
package debounce

import (
	"strings"
	"sync"
	"time"
)

// DefaultDelay is the wait used for preference writes.
const DefaultDelay = time.Second

type pending struct {
	timer *time.Timer
	fn    func()
}

// Debouncer runs the latest function scheduled for each key once the key has
// been quiet for the configured delay. Functions run on timer goroutines.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]*pending
	stopped bool
	running sync.WaitGroup
}

// New creates a Debouncer. A non-positive delay uses DefaultDelay.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*pending),
	}
}

// Delay returns the configured wait.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Schedule arranges for fn to run after the delay, replacing any call still
// pending for key. It is a no-op after Stop.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}

	p := &pending{fn: fn}
	p.timer = time.AfterFunc(d.delay, func() { d.fire(key, p) })
	d.pending[key] = p
}

func (d *Debouncer) fire(key string, p *pending) {
	d.mu.Lock()
	if d.pending[key] != p {
		// Replaced or cancelled after the timer already fired.
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	p.fn()
}

// Cancel drops the pending call for key and reports whether there was one.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(d.pending, key)
	return true
}

// CancelPrefix drops every pending call whose key starts with prefix and
// returns how many were dropped.
func (d *Debouncer) CancelPrefix(prefix string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for key, p := range d.pending {
		if strings.HasPrefix(key, prefix) {
			p.timer.Stop()
			delete(d.pending, key)
			n++
		}
	}
	return n
}

// Flush runs the pending call for key now, on the caller's goroutine.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	p, ok := d.pending[key]
	if ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok {
		p.fn()
	}
	return ok
}

// Pending reports how many keys are waiting.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending call, waits for calls already running and
// rejects further scheduling. It returns the number of calls cancelled.
func (d *Debouncer) Stop() int {
	d.mu.Lock()
	d.stopped = true
	n := len(d.pending)
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	d.running.Wait()
	return n
}
