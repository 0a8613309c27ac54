// Package natsliveliness implements the substrate contract on NATS
// JetStream key-value buckets.
//
// Mapping: declaring a liveliness token creates a KV entry, undeclaring
// deletes it, the bulk query drains a watcher's initial-value replay,
// and the live subscription consumes a watcher that replays the current
// key set before streaming updates. Because replay and updates come
// from one atomically created cursor, a token alive at query time is
// always observed by a subscription opened afterwards; there is no
// discovery-loss window between the two phases.
//
// Liveliness keyexpressions contain characters NATS KV keys forbid, so
// keys are stored base64url-encoded and decoded on the way out; prefix
// filtering happens client-side on the decoded form.
package natsliveliness
