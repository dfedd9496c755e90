package search

import (
	"sync"
	"time"
)

// debouncer runs fn once the delay elapses without another Reset. Only
// the most recent fn survives; Cancel drops whatever is pending.
type debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
}

func (d *debouncer) Reset(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, fn)
}

func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
