// Package substrate defines the narrow contract the discovery core
// requires from a transport/session layer: declare and undeclare
// liveliness tokens, bulk-query the currently alive set, and subscribe
// to changes.
//
// Implementations must provide retained-token semantics: a token
// declared before QueryTokens returns stays observable to a
// SubscribeTokens call issued afterwards, as long as it has not been
// undeclared in between. substrate/natsliveliness satisfies this by
// serving both the query and the subscription from one atomically
// created watcher cursor.
package substrate

import "context"

// ChangeKind says whether a token appeared or disappeared.
type ChangeKind int

const (
	// ChangePut signals a token was declared (entity alive).
	ChangePut ChangeKind = iota
	// ChangeDelete signals a token was undeclared (entity departed).
	ChangeDelete
)

// String returns the string representation of ChangeKind
func (ck ChangeKind) String() string {
	switch ck {
	case ChangePut:
		return "put"
	case ChangeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is one token lifecycle event delivered to a subscriber.
type Change struct {
	Kind ChangeKind
	Key  string
}

// Token is a declared liveliness token. Undeclaring it withdraws the
// announcement; Undeclare is idempotent.
type Token interface {
	Key() string
	Undeclare(ctx context.Context) error
}

// Subscription is a live token-change feed. Close stops delivery; no
// handler invocation begins after Close returns.
type Subscription interface {
	Close() error
}

// Handler receives token changes on a substrate-owned goroutine. It
// must not block for long and must not panic; anything it cannot
// process it should log and drop.
type Handler func(Change)

// Session is the substrate session handle the context owns.
//
// QueryTokens is the one blocking call in the core: it returns every
// currently declared token matching prefix, and completes when the
// substrate signals end of results. Implementations must buffer results
// without applying backpressure to their own delivery goroutines.
type Session interface {
	// ID returns the opaque, globally unique session identifier that
	// seeds every entity announced through this session.
	ID() string

	// DeclareToken announces key until the token is undeclared or the
	// session closes.
	DeclareToken(ctx context.Context, key string) (Token, error)

	// QueryTokens returns all currently declared keys matching prefix.
	QueryTokens(ctx context.Context, prefix string) ([]string, error)

	// SubscribeTokens delivers every subsequent change under prefix to
	// handler until the subscription is closed.
	SubscribeTokens(ctx context.Context, prefix string, handler Handler) (Subscription, error)

	// Close tears the session down. Tokens declared through the session
	// are withdrawn. Close is idempotent.
	Close() error
}
