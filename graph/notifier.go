package graph

import (
	"sync"

	"github.com/c360/rosgraph/entity"
)

// ChangeKind says whether a graph change added or removed an entity
type ChangeKind int

const (
	// ChangePut is an entity appearing (or reappearing)
	ChangePut ChangeKind = iota
	// ChangeDelete is an entity departing
	ChangeDelete
)

// String returns the string representation of ChangeKind
func (ck ChangeKind) String() string {
	if ck == ChangeDelete {
		return "delete"
	}
	return "put"
}

// Change describes one applied graph mutation
type Change struct {
	Kind   ChangeKind
	Key    string
	Entity *entity.Entity
}

// Notifier fans graph changes out to subscribers. Delivery is
// best-effort with a bounded buffer per subscriber: a consumer that
// stops draining loses changes rather than stalling the discovery
// callback, matching the coalescing semantics of a guard condition.
type Notifier struct {
	mu     sync.Mutex
	subs   map[int]chan Change
	nextID int
	closed bool
}

const subscriberBuffer = 64

func newNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Change)}
}

// Subscribe registers for graph changes. The returned cancel function
// detaches the subscriber and closes its channel; it is safe to call
// more than once.
func (n *Notifier) Subscribe() (<-chan Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Change, subscriberBuffer)
	if n.closed {
		close(ch)
		return ch, func() {}
	}

	id := n.nextID
	n.nextID++
	n.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			if existing, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(existing)
			}
			n.mu.Unlock()
		})
	}
	return ch, cancel
}

// notify delivers a change to every subscriber without blocking
func (n *Notifier) notify(change Change) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- change:
		default:
			// Subscriber is not draining; drop rather than stall the
			// substrate's delivery goroutine.
		}
	}
}

// Close detaches all subscribers and closes their channels. Subscribe
// after Close returns a closed channel.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
