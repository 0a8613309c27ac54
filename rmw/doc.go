// Package rmw is the lifecycle layer: it owns the substrate session,
// the graph cache, and the registry of locally created nodes and their
// endpoints, and it keeps all of that safe against discovery callbacks
// that fire on substrate-owned goroutines.
//
// A Context moves through four states:
//
//	Uninitialized -> Running -> ShuttingDown -> Shutdown
//
// Open performs the all-or-nothing transition to Running: session
// verified, graph bootstrapped, live subscription declared. Any step
// failing unwinds what came before and the Context is never published.
//
// The callback-vs-shutdown race is resolved through a process-wide
// handle registry. Discovery deliveries are addressed to a context
// handle, not a pointer: on entry the delivery looks the handle up and,
// if the entry is gone, returns immediately. Shutdown removes the entry
// before undeclaring the subscription or closing the session, so no new
// delivery can observe a half-torn-down Context, and it never holds the
// Context lock across substrate teardown.
package rmw
