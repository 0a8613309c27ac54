package events

import (
	"sync"

	"github.com/c360/rosgraph/metric"
)

// Kind enumerates the QoS event types raised against local entities.
// The set is small and closed; Manager state is indexed by it.
type Kind int

// Event kinds
const (
	RequestedQoSIncompatible Kind = iota
	OfferedQoSIncompatible
	MessageLost
	SubscriptionMatched
	PublicationMatched
	SubscriptionIncompatibleType
	PublisherIncompatibleType

	numKinds
)

// String returns a human-readable name for the event kind
func (k Kind) String() string {
	switch k {
	case RequestedQoSIncompatible:
		return "requested_qos_incompatible"
	case OfferedQoSIncompatible:
		return "offered_qos_incompatible"
	case MessageLost:
		return "message_lost"
	case SubscriptionMatched:
		return "subscription_matched"
	case PublicationMatched:
		return "publication_matched"
	case SubscriptionIncompatibleType:
		return "subscription_incompatible_type"
	case PublisherIncompatibleType:
		return "publisher_incompatible_type"
	default:
		return "invalid"
	}
}

// IsValid checks that the kind indexes Manager state
func (k Kind) IsValid() bool {
	return k >= 0 && k < numKinds
}

// Status is the accumulated state of one event kind on one entity.
// Deltas and Changed reset on TakeStatus; the absolute counts persist.
type Status struct {
	TotalCount        int64
	TotalCountDelta   int64
	CurrentCount      int64
	CurrentCountDelta int64
	Changed           bool
	Data              string
}

// Callback is an executor notification. count carries how many triggers
// the notification covers: 1 for a live trigger, more when accumulated
// triggers are flushed by SetCallback.
type Callback func(userData any, count uint64)

// Manager tracks event status for one local entity across all event
// kinds. The zero value is not usable; construct with NewManager.
type Manager struct {
	// statusMu guards statuses, callbacks, and unread counts.
	statusMu  sync.Mutex
	statuses  [numKinds]Status
	callbacks [numKinds]Callback
	userData  [numKinds]any
	unread    [numKinds]uint64

	// condMu guards wait-set attachment, separate from statusMu so the
	// trigger path is never held behind consumer logic.
	condMu  sync.Mutex
	waiters [numKinds]*WaitSet

	metrics *metric.Metrics
}

// Option configures a Manager
type Option func(*Manager)

// WithMetrics exports trigger counts through the core metrics
func WithMetrics(m *metric.Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// NewManager creates an event manager with all statuses zeroed
func NewManager(opts ...Option) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetCallback installs (or, with nil, removes) the executor callback
// for an event kind. Installing a callback flushes triggers that
// accumulated while no callback was set: the callback fires once with
// the accumulated count.
func (m *Manager) SetCallback(kind Kind, callback Callback, userData any) {
	if !kind.IsValid() {
		return
	}

	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	m.callbacks[kind] = callback
	m.userData[kind] = userData

	if callback != nil && m.unread[kind] > 0 {
		callback(userData, m.unread[kind])
		m.unread[kind] = 0
	}
}

// UpdateStatus is the single mutation entry point. It applies the count
// delta, marks the status changed, then notifies the push and pull
// sides: the callback fires (or the unread counter grows), and any
// attached wait set is triggered.
//
// The current count may shrink (negative delta on unmatch); the total
// count only ever accumulates non-negative deltas.
func (m *Manager) UpdateStatus(kind Kind, currentCountDelta int64) {
	if !kind.IsValid() {
		return
	}

	m.statusMu.Lock()
	status := &m.statuses[kind]
	if currentCountDelta > 0 {
		status.TotalCount += currentCountDelta
		status.TotalCountDelta += currentCountDelta
	}
	status.CurrentCount += currentCountDelta
	status.CurrentCountDelta += currentCountDelta
	status.Changed = true

	if cb := m.callbacks[kind]; cb != nil {
		cb(m.userData[kind], 1)
	} else {
		m.unread[kind]++
	}
	m.statusMu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordEventTriggered(kind.String())
	}

	m.condMu.Lock()
	if w := m.waiters[kind]; w != nil {
		w.Trigger()
	}
	m.condMu.Unlock()
}

// TakeStatus returns a copy of the current status and resets the deltas
// and the changed flag. A second take before any new update returns
// zero deltas.
func (m *Manager) TakeStatus(kind Kind) Status {
	if !kind.IsValid() {
		return Status{}
	}

	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	ret := m.statuses[kind]
	m.statuses[kind].CurrentCountDelta = 0
	m.statuses[kind].TotalCountDelta = 0
	m.statuses[kind].Changed = false
	return ret
}

// QueueHasDataAndAttachConditionIfNot returns true immediately if the
// status already shows an unconsumed change; otherwise it attaches the
// wait set so the next UpdateStatus notifies it, and returns false. The
// check and the attach are atomic under the condition lock.
func (m *Manager) QueueHasDataAndAttachConditionIfNot(kind Kind, ws *WaitSet) bool {
	if !kind.IsValid() {
		return false
	}

	m.condMu.Lock()
	defer m.condMu.Unlock()

	m.statusMu.Lock()
	changed := m.statuses[kind].Changed
	m.statusMu.Unlock()

	if changed {
		return true
	}

	m.waiters[kind] = ws
	return false
}

// DetachConditionAndQueueIsEmpty detaches any attached wait set and
// reports whether the status still shows no unconsumed change. A false
// return tells the polling consumer data arrived while it was waking.
func (m *Manager) DetachConditionAndQueueIsEmpty(kind Kind) bool {
	if !kind.IsValid() {
		return true
	}

	m.condMu.Lock()
	defer m.condMu.Unlock()

	m.waiters[kind] = nil

	m.statusMu.Lock()
	changed := m.statuses[kind].Changed
	m.statusMu.Unlock()

	return !changed
}
