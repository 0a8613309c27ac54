package events

import "sync"

// DataCallbackManager bridges data-availability notifications to an
// executor callback, accumulating triggers that fire while no callback
// is installed. It is the data-path sibling of Manager's per-kind event
// callbacks: same flush-on-set semantics, no status bookkeeping.
type DataCallbackManager struct {
	mu       sync.Mutex
	callback Callback
	userData any
	unread   uint64
}

// SetCallback installs (or, with nil, removes) the data callback. Any
// triggers accumulated while no callback was set are flushed once with
// the accumulated count.
func (d *DataCallbackManager) SetCallback(userData any, callback Callback) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if callback != nil {
		if d.unread > 0 {
			callback(userData, d.unread)
			d.unread = 0
		}
		d.userData = userData
		d.callback = callback
	} else {
		d.userData = nil
		d.callback = nil
	}
}

// Trigger notifies the callback of one new datum, or accumulates the
// trigger if no callback is installed
func (d *DataCallbackManager) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.callback != nil {
		d.callback(d.userData, 1)
	} else {
		d.unread++
	}
}
