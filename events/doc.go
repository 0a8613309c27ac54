// Package events provides per-entity QoS event bookkeeping with two
// coexisting consumption models.
//
// Push: SetCallback registers an executor callback. Triggers that
// arrived while no callback was set are flushed once, as a single
// accumulated count, the moment a callback is installed.
//
// Pull: a polling consumer calls QueueHasDataAndAttachConditionIfNot
// before blocking on its wait set and DetachConditionAndQueueIsEmpty
// after waking. Both are atomic with respect to status updates, which
// closes the missed-wakeup race: either the consumer sees data
// immediately, or the wait set is attached before any further update can
// fire and is guaranteed to be notified by it.
//
// Status mutation goes through a single entry point, UpdateStatus. The
// wait-set attachment state lives under its own lock, separate from the
// status lock, so the trigger path never waits behind slow consumer
// logic.
package events
