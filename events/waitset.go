package events

import (
	"sync"
	"time"
)

// WaitSet is the blocking primitive a polling consumer parks on between
// QueueHasDataAndAttachConditionIfNot and
// DetachConditionAndQueueIsEmpty. A trigger that lands before Wait is
// not lost: the triggered flag stays set until consumed.
type WaitSet struct {
	mu        sync.Mutex
	cond      *sync.Cond
	triggered bool
}

// NewWaitSet creates an untriggered wait set
func NewWaitSet() *WaitSet {
	w := &WaitSet{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Trigger marks the wait set and wakes one waiter
func (w *WaitSet) Trigger() {
	w.mu.Lock()
	w.triggered = true
	w.cond.Signal()
	w.mu.Unlock()
}

// Wait blocks until the wait set is triggered, then consumes the trigger
func (w *WaitSet) Wait() {
	w.mu.Lock()
	for !w.triggered {
		w.cond.Wait()
	}
	w.triggered = false
	w.mu.Unlock()
}

// WaitTimeout blocks until triggered or until the timeout elapses. It
// returns true if the trigger was consumed, false on timeout.
func (w *WaitSet) WaitTimeout(d time.Duration) bool {
	deadline := time.Now().Add(d)

	w.mu.Lock()
	defer w.mu.Unlock()

	for !w.triggered {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}

		// sync.Cond has no timed wait; emulate with a timer that
		// signals the condition.
		timer := time.AfterFunc(remaining, func() {
			w.mu.Lock()
			w.cond.Broadcast()
			w.mu.Unlock()
		})
		w.cond.Wait()
		timer.Stop()
	}
	w.triggered = false
	return true
}
