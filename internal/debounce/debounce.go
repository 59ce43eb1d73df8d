// Package debounce delays calls until input for a key goes quiet.
//
// Each Do for a key cancels the key's pending call and the context of the
// call currently running. A call never starts before the previous call for
// the same key has returned, so at most one is in flight per key.
package debounce

import (
	"context"
	"sync"
	"time"
)

type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	timer  *time.Timer
	cancel context.CancelFunc
	after  chan struct{} // predecessor still running, nil if none
	done   chan struct{} // closed when this call returns
}

func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, entries: make(map[string]*entry)}
}

// Do schedules fn for key after the quiet period.
func (d *Debouncer) Do(parent context.Context, key string, fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var after chan struct{}
	if prev := d.entries[key]; prev != nil {
		prev.cancel()
		if prev.timer.Stop() {
			// never fired, so wait on whatever it was waiting on
			after = prev.after
		} else {
			after = prev.done
		}
	}

	ctx, cancel := context.WithCancel(parent)
	e := &entry{cancel: cancel, after: after, done: make(chan struct{})}
	e.timer = time.AfterFunc(d.delay, func() {
		defer close(e.done)
		defer cancel()
		if e.after != nil {
			<-e.after
		}
		if ctx.Err() == nil {
			fn(ctx)
		}
		d.mu.Lock()
		if d.entries[key] == e {
			delete(d.entries, key)
		}
		d.mu.Unlock()
	})
	d.entries[key] = e
}

// Cancel drops the pending call for key and cancels a running one. A running
// call keeps its slot until it returns.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e := d.entries[key]; e != nil {
		e.cancel()
		if e.timer.Stop() {
			delete(d.entries, key)
		}
	}
}

// Stop cancels every key.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, e := range d.entries {
		e.cancel()
		if e.timer.Stop() {
			delete(d.entries, k)
		}
	}
}

// Pending reports whether key has a scheduled or running call.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.entries[key]
	return ok
}
