// Package discovery runs the bootstrap-then-subscribe protocol that
// keeps a graph cache consistent with the substrate's live-token set.
//
// The two phases are ordered deliberately: the bulk query seeds the
// cache from every currently alive token, then the live subscription
// takes over for incremental updates. The substrate must guarantee
// retained-token semantics across the two calls (see package substrate);
// with that guarantee there is no discovery-loss window.
package discovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/rosgraph/entity"
	"github.com/c360/rosgraph/errors"
	"github.com/c360/rosgraph/metric"
	"github.com/c360/rosgraph/substrate"
)

// Applier receives decoded-or-dropped liveliness events. *graph.Cache
// satisfies it directly; the lifecycle layer interposes its own Applier
// to gate deliveries on context liveness.
type Applier interface {
	ApplyPut(key string)
	ApplyDelete(key string)
}

// Engine feeds liveliness events from one substrate session into one
// applier, normally a graph cache. Construction is inert; Start runs
// the protocol.
type Engine struct {
	session substrate.Session
	applier Applier
	prefix  string
	logger  *slog.Logger
	metrics *metric.Metrics

	mu      sync.Mutex
	sub     substrate.Subscription
	started bool
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics exports bootstrap and event metrics
func WithMetrics(m *metric.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a discovery engine for one domain
func NewEngine(session substrate.Session, applier Applier, domainID int, opts ...Option) *Engine {
	e := &Engine{
		session: session,
		applier: applier,
		prefix:  entity.SubscriptionPrefix(domainID),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start bootstraps the cache and declares the live subscription. Both
// steps are required: failure of either is fatal and leaves no
// subscription behind, so a Context under construction can be unwound.
//
// The bootstrap query is the one blocking call in the core. The
// substrate buffers its results without backpressure, so the call
// cannot stall the substrate's delivery goroutines; callers wanting a
// time bound impose it through ctx.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return errors.WrapInvalid(errors.ErrConstruction, "Engine", "Start", "already started")
	}

	begin := time.Now()
	keys, err := e.session.QueryTokens(ctx, e.prefix)
	if err != nil {
		return errors.WrapFatal(err, "Engine", "Start", "bootstrap token query")
	}
	for _, key := range keys {
		e.applier.ApplyPut(key)
	}
	took := time.Since(begin)
	if e.metrics != nil {
		e.metrics.RecordBootstrap(len(keys), took)
	}
	e.logger.Info("Discovery bootstrap complete",
		"prefix", e.prefix, "tokens", len(keys), "took", took)

	sub, err := e.session.SubscribeTokens(ctx, e.prefix, e.handleChange)
	if err != nil {
		return errors.WrapFatal(err, "Engine", "Start", "declare live subscription")
	}
	e.sub = sub
	e.started = true
	return nil
}

// handleChange runs on a substrate-owned goroutine. Malformed keys are
// absorbed by the cache; nothing here may panic or block for long.
func (e *Engine) handleChange(change substrate.Change) {
	switch change.Kind {
	case substrate.ChangePut:
		e.applier.ApplyPut(change.Key)
	case substrate.ChangeDelete:
		e.applier.ApplyDelete(change.Key)
	default:
		e.logger.Warn("Ignoring unknown change kind", "kind", int(change.Kind), "key", change.Key)
	}
}

// Close undeclares the live subscription. Idempotent; after Close
// returns, no new handleChange invocation begins.
func (e *Engine) Close() error {
	e.mu.Lock()
	sub := e.sub
	e.sub = nil
	e.started = false
	e.mu.Unlock()

	if sub == nil {
		return nil
	}
	if err := sub.Close(); err != nil {
		return errors.WrapTransient(err, "Engine", "Close", "undeclare subscription")
	}
	return nil
}
