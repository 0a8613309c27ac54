package rmw

import (
	"context"
	"sync"

	"github.com/c360/rosgraph/entity"
	"github.com/c360/rosgraph/errors"
	"github.com/c360/rosgraph/substrate"
)

// NodeData wraps one local node entity, its liveliness token, and the
// registries of child endpoints keyed by caller-supplied handles. Each
// node carries its own mutex; the context lock is not held while node
// registries are mutated.
type NodeData struct {
	ctx    *Context
	handle uint64
	entity *entity.Entity
	token  substrate.Token

	mu       sync.Mutex
	shutdown bool
	pubs     map[uint64]*PublisherData
	subs     map[uint64]*SubscriptionData
	services map[uint64]*ServiceData
	clients  map[uint64]*ClientData
}

func newNodeData(c *Context, handle uint64, ent *entity.Entity, token substrate.Token) *NodeData {
	return &NodeData{
		ctx:      c,
		handle:   handle,
		entity:   ent,
		token:    token,
		pubs:     make(map[uint64]*PublisherData),
		subs:     make(map[uint64]*SubscriptionData),
		services: make(map[uint64]*ServiceData),
		clients:  make(map[uint64]*ClientData),
	}
}

// Entity returns the node's immutable entity descriptor
func (n *NodeData) Entity() *entity.Entity { return n.entity }

// Handle returns the caller-supplied node handle
func (n *NodeData) Handle() uint64 { return n.handle }

// createEndpointLocked does the shared create work: state and duplicate
// checks, entity construction, token declaration. Callers hold n.mu.
func (n *NodeData) createEndpointLocked(ctx context.Context, kind entity.Kind, handle uint64, topic entity.TopicInfo, exists func(uint64) bool) (*endpointData, error) {
	if n.shutdown {
		return nil, errors.WrapInvalid(errors.ErrShutdown, "NodeData", "CreateData", "node is shut down")
	}
	if exists(handle) {
		return nil, errors.WrapInvalid(errors.ErrDuplicateHandle, "NodeData", "CreateData", "endpoint handle in use")
	}

	n.ctx.mu.Lock()
	entityID := n.ctx.nextEntityIDLocked()
	n.ctx.mu.Unlock()

	ent, err := entity.NewEndpoint(kind, n.entity.SessionID(), n.entity.NodeID(), entityID, n.entity.NodeInfo(), topic)
	if err != nil {
		return nil, errors.WrapInvalid(err, "NodeData", "CreateData", "construct endpoint entity")
	}

	token, err := n.ctx.session.DeclareToken(ctx, entity.Encode(ent))
	if err != nil {
		return nil, errors.Wrap(err, "NodeData", "CreateData", "declare liveliness token")
	}
	if n.ctx.metrics != nil {
		n.ctx.metrics.RecordTokenDeclared()
	}
	return newEndpointData(n.ctx, ent, token), nil
}

// CreatePublisherData declares a publisher endpoint under this node
func (n *NodeData) CreatePublisherData(ctx context.Context, handle uint64, topic entity.TopicInfo) (*PublisherData, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ep, err := n.createEndpointLocked(ctx, entity.KindPublisher, handle, topic, func(h uint64) bool {
		_, ok := n.pubs[h]
		return ok
	})
	if err != nil {
		return nil, err
	}
	pd := &PublisherData{endpointData: ep}
	n.pubs[handle] = pd
	return pd, nil
}

// GetPublisherData looks a publisher up by handle; a miss is not an error
func (n *NodeData) GetPublisherData(handle uint64) (*PublisherData, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	pd, ok := n.pubs[handle]
	return pd, ok
}

// DeletePublisherData undeclares the publisher's token and removes it.
// Deleting an unknown handle is a no-op.
func (n *NodeData) DeletePublisherData(ctx context.Context, handle uint64) error {
	n.mu.Lock()
	pd, ok := n.pubs[handle]
	delete(n.pubs, handle)
	n.mu.Unlock()

	if !ok {
		return nil
	}
	return pd.Shutdown(ctx)
}

// CreateSubscriptionData declares a subscriber endpoint under this node
func (n *NodeData) CreateSubscriptionData(ctx context.Context, handle uint64, topic entity.TopicInfo) (*SubscriptionData, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ep, err := n.createEndpointLocked(ctx, entity.KindSubscriber, handle, topic, func(h uint64) bool {
		_, ok := n.subs[h]
		return ok
	})
	if err != nil {
		return nil, err
	}
	sd := &SubscriptionData{endpointData: ep}
	n.subs[handle] = sd
	return sd, nil
}

// GetSubscriptionData looks a subscription up by handle
func (n *NodeData) GetSubscriptionData(handle uint64) (*SubscriptionData, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	sd, ok := n.subs[handle]
	return sd, ok
}

// DeleteSubscriptionData undeclares and removes; unknown handle is a no-op
func (n *NodeData) DeleteSubscriptionData(ctx context.Context, handle uint64) error {
	n.mu.Lock()
	sd, ok := n.subs[handle]
	delete(n.subs, handle)
	n.mu.Unlock()

	if !ok {
		return nil
	}
	return sd.Shutdown(ctx)
}

// CreateServiceData declares a service-server endpoint under this node
func (n *NodeData) CreateServiceData(ctx context.Context, handle uint64, topic entity.TopicInfo) (*ServiceData, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ep, err := n.createEndpointLocked(ctx, entity.KindService, handle, topic, func(h uint64) bool {
		_, ok := n.services[h]
		return ok
	})
	if err != nil {
		return nil, err
	}
	sd := &ServiceData{endpointData: ep}
	n.services[handle] = sd
	return sd, nil
}

// GetServiceData looks a service up by handle
func (n *NodeData) GetServiceData(handle uint64) (*ServiceData, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	sd, ok := n.services[handle]
	return sd, ok
}

// DeleteServiceData undeclares and removes; unknown handle is a no-op
func (n *NodeData) DeleteServiceData(ctx context.Context, handle uint64) error {
	n.mu.Lock()
	sd, ok := n.services[handle]
	delete(n.services, handle)
	n.mu.Unlock()

	if !ok {
		return nil
	}
	return sd.Shutdown(ctx)
}

// CreateClientData declares a service-client endpoint under this node
func (n *NodeData) CreateClientData(ctx context.Context, handle uint64, topic entity.TopicInfo) (*ClientData, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ep, err := n.createEndpointLocked(ctx, entity.KindClient, handle, topic, func(h uint64) bool {
		_, ok := n.clients[h]
		return ok
	})
	if err != nil {
		return nil, err
	}
	cd := &ClientData{endpointData: ep}
	n.clients[handle] = cd
	return cd, nil
}

// GetClientData looks a client up by handle
func (n *NodeData) GetClientData(handle uint64) (*ClientData, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	cd, ok := n.clients[handle]
	return cd, ok
}

// DeleteClientData undeclares and removes; unknown handle is a no-op
func (n *NodeData) DeleteClientData(ctx context.Context, handle uint64) error {
	n.mu.Lock()
	cd, ok := n.clients[handle]
	delete(n.clients, handle)
	n.mu.Unlock()

	if !ok {
		return nil
	}
	return cd.Shutdown(ctx)
}

// Shutdown undeclares every child endpoint token and then the node's
// own token. Idempotent; later create calls fail with a shutdown error.
func (n *NodeData) Shutdown(ctx context.Context) error {
	n.mu.Lock()
	if n.shutdown {
		n.mu.Unlock()
		return nil
	}
	n.shutdown = true

	endpoints := make([]*endpointData, 0, len(n.pubs)+len(n.subs)+len(n.services)+len(n.clients))
	for _, pd := range n.pubs {
		endpoints = append(endpoints, pd.endpointData)
	}
	for _, sd := range n.subs {
		endpoints = append(endpoints, sd.endpointData)
	}
	for _, sd := range n.services {
		endpoints = append(endpoints, sd.endpointData)
	}
	for _, cd := range n.clients {
		endpoints = append(endpoints, cd.endpointData)
	}
	n.pubs = make(map[uint64]*PublisherData)
	n.subs = make(map[uint64]*SubscriptionData)
	n.services = make(map[uint64]*ServiceData)
	n.clients = make(map[uint64]*ClientData)
	n.mu.Unlock()

	var firstErr error
	for _, ep := range endpoints {
		if err := ep.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := n.token.Undeclare(ctx); err != nil {
		if firstErr == nil {
			firstErr = errors.WrapTransient(err, "NodeData", "Shutdown", "undeclare node token")
		}
	} else if n.ctx.metrics != nil {
		n.ctx.metrics.RecordTokenUndeclared()
	}
	return firstErr
}
