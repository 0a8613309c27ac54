// Package entity defines the identity model for graph participants and
// the codec that maps an identity to and from its liveliness keyexpression.
//
// # Keyexpression grammar
//
// Every entity is announced on the substrate as a single hierarchical,
// slash-delimited key:
//
//	@ros2_lv/<domain>/<session>/<node-id>/<entity-id>/<kind>/<enclave>/<namespace>/<name>
//
// with three extra trailing segments for topic-bearing kinds
// (publisher, subscriber, service server, service client):
//
//	.../<topic>/<type>/<reliability>:<durability>:<history>,<depth>
//
// The encoded key is the only wire-visible artifact of this module: any
// change to segment order or escaping breaks interoperability with
// every other participant, so the grammar is covered by round-trip
// tests rather than left implicit.
//
// Free-form segments (enclave, namespace, node name, topic name, type
// name) are escaped so a forged name cannot collide with the segment
// separators: "%" becomes "%25" and "/" becomes "%2F".
//
// Decode is invoked on keys received from untrusted peers. It returns a
// typed *DecodeError for anything malformed and never panics.
package entity
