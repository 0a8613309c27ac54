package rmw

import (
	"context"
	"sync"

	"github.com/c360/rosgraph/entity"
	"github.com/c360/rosgraph/errors"
	"github.com/c360/rosgraph/events"
	"github.com/c360/rosgraph/substrate"
)

// endpointData is the shared state of every local endpoint: the
// immutable entity descriptor, the liveliness token keeping it visible,
// and the per-endpoint event managers. The four exported wrappers exist
// so registries and call sites stay kind-typed; the kind set is closed.
type endpointData struct {
	ctx    *Context
	entity *entity.Entity
	token  substrate.Token
	events *events.Manager
	data   *events.DataCallbackManager

	mu       sync.Mutex
	shutdown bool
}

func newEndpointData(c *Context, ent *entity.Entity, token substrate.Token) *endpointData {
	var eventOpts []events.Option
	if c.metrics != nil {
		eventOpts = append(eventOpts, events.WithMetrics(c.metrics))
	}
	return &endpointData{
		ctx:    c,
		entity: ent,
		token:  token,
		events: events.NewManager(eventOpts...),
		data:   &events.DataCallbackManager{},
	}
}

// Entity returns the endpoint's immutable entity descriptor
func (e *endpointData) Entity() *entity.Entity { return e.entity }

// Events returns the endpoint's QoS event manager
func (e *endpointData) Events() *events.Manager { return e.events }

// DataCallbacks returns the data-availability callback manager
func (e *endpointData) DataCallbacks() *events.DataCallbackManager { return e.data }

// TokenKey returns the liveliness key this endpoint is announced under
func (e *endpointData) TokenKey() string { return e.token.Key() }

// IsShutdown reports whether the endpoint has been torn down
func (e *endpointData) IsShutdown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdown
}

// Shutdown undeclares the endpoint's liveliness token. Idempotent.
func (e *endpointData) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return nil
	}
	e.shutdown = true
	e.mu.Unlock()

	if err := e.token.Undeclare(ctx); err != nil {
		return errors.WrapTransient(err, "endpointData", "Shutdown", "undeclare token")
	}
	if e.ctx.metrics != nil {
		e.ctx.metrics.RecordTokenUndeclared()
	}
	return nil
}

// PublisherData is a local message publisher endpoint
type PublisherData struct {
	*endpointData
}

// SubscriptionData is a local message subscriber endpoint
type SubscriptionData struct {
	*endpointData
}

// ServiceData is a local service server endpoint
type ServiceData struct {
	*endpointData
}

// ClientData is a local service client endpoint
type ClientData struct {
	*endpointData
}
