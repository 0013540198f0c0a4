package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delay = 20 * time.Millisecond

func TestScheduleRunsOnceAfterQuiet(t *testing.T) {
	d := New(delay)
	defer d.Stop()

	var calls atomic.Int32
	var last atomic.Int32
	done := make(chan struct{}, 1)

	for i := 1; i <= 5; i++ {
		d.Schedule("graph_positions", func() {
			calls.Add(1)
			last.Store(int32(i))
			done <- struct{}{}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced call never ran")
	}
	time.Sleep(3 * delay)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(5), last.Load())
	assert.Equal(t, 0, d.Pending())
}

func TestKeysAreIndependent(t *testing.T) {
	d := New(delay)
	defer d.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	seen := map[string]bool{}
	for _, key := range []string{"graph_positions", "graph_simulation_params"} {
		d.Schedule(key, func() {
			mu.Lock()
			seen[key] = true
			mu.Unlock()
			wg.Done()
		})
	}
	assert.Equal(t, 2, d.Pending())

	waitOrFail(t, &wg)
	assert.True(t, seen["graph_positions"])
	assert.True(t, seen["graph_simulation_params"])
}

func TestCancel(t *testing.T) {
	d := New(delay)
	defer d.Stop()

	var calls atomic.Int32
	d.Schedule("k", func() { calls.Add(1) })
	assert.True(t, d.Cancel("k"))
	assert.False(t, d.Cancel("k"))

	time.Sleep(3 * delay)
	assert.Equal(t, int32(0), calls.Load())
}

func TestCancelPrefix(t *testing.T) {
	d := New(time.Hour)
	defer d.Stop()

	noop := func() {}
	d.Schedule("graph_positions/decision-1", noop)
	d.Schedule("graph_positions/pattern-2", noop)
	d.Schedule("graph_simulation_params/linkDistance", noop)

	assert.Equal(t, 2, d.CancelPrefix("graph_positions/"))
	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, 0, d.CancelPrefix("graph_positions/"))
}

func TestFlushRunsImmediately(t *testing.T) {
	d := New(time.Hour)
	defer d.Stop()

	var calls int
	d.Schedule("k", func() { calls++ })
	require.True(t, d.Flush("k"))
	assert.Equal(t, 1, calls)
	assert.False(t, d.Flush("k"))
}

func TestStopCancelsAndRejects(t *testing.T) {
	d := New(delay)

	var calls atomic.Int32
	d.Schedule("a", func() { calls.Add(1) })
	d.Schedule("b", func() { calls.Add(1) })
	assert.Equal(t, 2, d.Stop())

	d.Schedule("c", func() { calls.Add(1) })
	assert.Equal(t, 0, d.Pending())

	time.Sleep(3 * delay)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDefaultDelay(t *testing.T) {
	assert.Equal(t, DefaultDelay, New(0).Delay())
	assert.Equal(t, delay, New(delay).Delay())
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debounced calls")
	}
}
