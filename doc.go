// Package rosgraph provides a process-local, consistent view of a
// distributed ROS 2 computation graph discovered through liveliness
// tokens on a messaging substrate.
//
// # Architecture
//
// The module is built from five cooperating pieces:
//
//	┌─────────────────────────────────────┐
//	│        Context (rmw)                │  Session ownership, local
//	│  (nodes, endpoints, shutdown)       │  entity registries
//	└─────────────────────────────────────┘
//	           ↓ registers / queries
//	┌─────────────────────────────────────┐
//	│        Graph Cache (graph)          │  Entities + topic indices,
//	│   fed by the Discovery Engine       │  last-event-wins
//	└─────────────────────────────────────┘
//	           ↑ put / delete events
//	┌─────────────────────────────────────┐
//	│     Discovery Engine (discovery)    │  Bootstrap query, then
//	│  bootstrap → live subscription      │  incremental updates
//	└─────────────────────────────────────┘
//	           ↑ liveliness tokens
//	┌─────────────────────────────────────┐
//	│     Substrate (substrate)           │  declare / undeclare /
//	│  NATS JetStream KV implementation   │  query / subscribe
//	└─────────────────────────────────────┘
//
// Every entity (node, publisher, subscriber, service server, service
// client) announces itself by declaring a liveliness token whose key
// encodes the entity's full identity (package entity). Peers observe
// token arrivals and departures and maintain their own graph caches;
// there is no central directory.
//
// The events package bridges push (callback) and pull (wait set)
// consumption of QoS events raised against local entities.
//
// # Substrate
//
// The core consumes exactly four substrate primitives: declare-token,
// undeclare-token, query-tokens (bulk, blocking) and subscribe-tokens
// (async, push). substrate/natsliveliness implements them on a NATS
// JetStream key-value bucket; testutil provides an in-memory
// implementation for tests.
package rosgraph
