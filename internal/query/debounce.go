package query

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the debouncer needs
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// RealAfterFunc; tests inject a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer echoes every pushed value immediately through Typed and hands
// the value to commit only once no new value arrived for the quiet interval.
type Debouncer struct {
	delay     time.Duration
	afterFunc AfterFunc
	commit    func(string)

	mu      sync.Mutex
	typed   string
	timer   Timer
	seq     uint64
	stopped bool
}

func NewDebouncer(delay time.Duration, afterFunc AfterFunc, commit func(string)) *Debouncer {
	if afterFunc == nil {
		afterFunc = RealAfterFunc
	}
	return &Debouncer{
		delay:     delay,
		afterFunc: afterFunc,
		commit:    commit,
	}
}

func (d *Debouncer) Push(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.typed = v
	if d.timer != nil {
		d.timer.Stop()
	}

	d.seq++
	seq := d.seq
	d.timer = d.afterFunc(d.delay, func() { d.fire(seq, v) })
}

// Set replaces the typed value without scheduling a commit
func (d *Debouncer) Set(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.typed = v
}

func (d *Debouncer) Typed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.typed
}

// Pending reports whether a commit is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(seq uint64, v string) {
	d.mu.Lock()
	// a timer that already fired cannot be stopped, so stale callbacks are
	// filtered by sequence number
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.commit(v)
}
