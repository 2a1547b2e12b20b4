package csvdoc

import (
	"sync"
	"time"
)

// Default persistence delays.
const (
	DefaultAutosaveDelay   = 500 * time.Millisecond
	DefaultWidthFlushDelay = 300 * time.Millisecond
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop cancels the callback. It reports false when the callback already
	// ran or was stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay. Callbacks run on their own
// goroutine.
type Scheduler interface {
	AfterFunc(delay time.Duration, fn func()) Timer
}

// SystemScheduler schedules callbacks with time.AfterFunc.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(delay time.Duration, fn func()) Timer {
	return time.AfterFunc(delay, fn)
}

// debouncer restarts a single pending timer on every Trigger.
type debouncer struct {
	mu        sync.Mutex
	scheduler Scheduler
	delay     time.Duration
	fn        func()
	timer     Timer
	gen       uint64
}

func newDebouncer(scheduler Scheduler, delay time.Duration, fn func()) *debouncer {
	return &debouncer{scheduler: scheduler, delay: delay, fn: fn}
}

// Trigger cancels any pending run and schedules a new one.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.scheduler.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending run. It reports whether one was pending.
func (d *debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}

// fire ignores runs superseded by a later Trigger or Cancel whose Stop came
// too late.
func (d *debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}
