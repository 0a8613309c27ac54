package rmw

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360/rosgraph/discovery"
	"github.com/c360/rosgraph/entity"
	"github.com/c360/rosgraph/errors"
	"github.com/c360/rosgraph/graph"
	"github.com/c360/rosgraph/metric"
	"github.com/c360/rosgraph/substrate"
)

// State is the lifecycle phase of a Context
type State int

// Context states, in transition order. Shutdown is terminal.
const (
	Uninitialized State = iota
	Running
	ShuttingDown
	Shutdown
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting_down"
	case Shutdown:
		return "shutdown"
	default:
		return "invalid"
	}
}

// Context is the per-(domain, enclave) lifecycle root. It owns the
// substrate session, the graph cache, and the local node registry. All
// registry mutation is serialized by one plain mutex; helpers that
// require it held carry the Locked suffix.
type Context struct {
	domainID int
	enclave  string

	session substrate.Session
	cache   *graph.Cache
	engine  *discovery.Engine
	handle  uint64
	logger  *slog.Logger
	metrics *metric.Metrics

	mu           sync.Mutex
	state        State
	nextEntityID uint64
	nodes        map[uint64]*NodeData
}

// Option configures a Context before Open publishes it
type Option func(*Context)

// WithLogger sets the lifecycle logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

// WithMetrics exports lifecycle and graph metrics
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Context) { c.metrics = m }
}

// Open constructs a Running context over an already-connected session.
// The context takes ownership of the session: on failure the session is
// closed along with every other partially acquired resource, and on
// success Shutdown closes it.
func Open(ctx context.Context, session substrate.Session, domainID int, enclave string, opts ...Option) (*Context, error) {
	if domainID < 0 {
		return nil, errors.WrapInvalid(errors.ErrConstruction, "Context", "Open", "negative domain id")
	}

	c := &Context{
		domainID: domainID,
		enclave:  enclave,
		session:  session,
		logger:   slog.Default(),
		state:    Uninitialized,
		nodes:    make(map[uint64]*NodeData),
	}
	for _, opt := range opts {
		opt(c)
	}

	cacheOpts := []graph.Option{graph.WithLogger(c.logger)}
	engineOpts := []discovery.Option{discovery.WithLogger(c.logger)}
	if c.metrics != nil {
		cacheOpts = append(cacheOpts, graph.WithMetrics(c.metrics))
		engineOpts = append(engineOpts, discovery.WithMetrics(c.metrics))
	}
	c.cache = graph.NewCache(cacheOpts...)

	// Publish the handle before starting discovery: bootstrap puts
	// arrive through the same registry path as live ones.
	c.handle = registerContext(c)
	c.engine = discovery.NewEngine(session, contextApplier{handle: c.handle}, domainID, engineOpts...)

	if err := c.engine.Start(ctx); err != nil {
		unregisterContext(c.handle)
		c.cache.Notifier().Close()
		if cerr := session.Close(); cerr != nil {
			c.logger.Warn("Session close during failed construction", "error", cerr)
		}
		return nil, errors.WrapFatal(err, "Context", "Open", "start discovery")
	}

	c.mu.Lock()
	c.state = Running
	c.mu.Unlock()

	c.logger.Info("Context running",
		"domain", domainID, "enclave", enclave, "session", session.ID())
	return c, nil
}

// DomainID returns the ROS domain this context participates in
func (c *Context) DomainID() int { return c.domainID }

// Enclave returns the security enclave name
func (c *Context) Enclave() string { return c.enclave }

// SessionID returns the substrate session identifier
func (c *Context) SessionID() string { return c.session.ID() }

// Graph returns the context's graph cache. The cache stays readable
// after shutdown; it simply stops receiving updates.
func (c *Context) Graph() *graph.Cache { return c.cache }

// State returns the current lifecycle state
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsShutdown reports whether the context reached the terminal state
func (c *Context) IsShutdown() bool {
	return c.State() == Shutdown
}

// nextEntityIDLocked allocates the next entity id. Ids are strictly
// increasing and never reused within the context's lifetime.
func (c *Context) nextEntityIDLocked() uint64 {
	id := c.nextEntityID
	c.nextEntityID++
	return id
}

// CreateNode declares a liveliness token for a new local node and
// registers it under the caller-supplied handle. Fails if the context
// is not running, the handle is taken, or the declaration fails.
func (c *Context) CreateNode(ctx context.Context, handle uint64, namespace, name string) (*NodeData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Running {
		return nil, errors.WrapInvalid(errors.ErrShutdown, "Context", "CreateNode", "context not running")
	}
	if _, ok := c.nodes[handle]; ok {
		return nil, errors.WrapInvalid(errors.ErrDuplicateHandle, "Context", "CreateNode", "node handle in use")
	}

	nodeID := c.nextEntityIDLocked()
	ent, err := entity.NewNode(c.session.ID(), nodeID, entity.NodeInfo{
		DomainID:  c.domainID,
		Namespace: namespace,
		Name:      name,
		Enclave:   c.enclave,
	})
	if err != nil {
		return nil, errors.WrapInvalid(err, "Context", "CreateNode", "construct node entity")
	}

	token, err := c.session.DeclareToken(ctx, entity.Encode(ent))
	if err != nil {
		return nil, errors.Wrap(err, "Context", "CreateNode", "declare liveliness token")
	}
	if c.metrics != nil {
		c.metrics.RecordTokenDeclared()
	}

	nd := newNodeData(c, handle, ent, token)
	c.nodes[handle] = nd
	c.logger.Info("Node created", "handle", handle, "node", name, "namespace", namespace, "id", nodeID)
	return nd, nil
}

// GetNode looks up a node by handle. A miss is not an error.
func (c *Context) GetNode(handle uint64) (*NodeData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nd, ok := c.nodes[handle]
	return nd, ok
}

// DeleteNode shuts the node down (undeclaring its tokens) and removes
// it from the registry. Deleting an unknown handle is a no-op.
func (c *Context) DeleteNode(ctx context.Context, handle uint64) error {
	c.mu.Lock()
	nd, ok := c.nodes[handle]
	delete(c.nodes, handle)
	c.mu.Unlock()

	if !ok {
		return nil
	}
	return nd.Shutdown(ctx)
}

// NodeCount returns the number of registered local nodes
func (c *Context) NodeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

// Shutdown tears the context down: the registry entry goes first so no
// new discovery delivery can reach this context, then the live
// subscription, then every local node, then the session. Idempotent; a
// concurrent second call waits for nothing and returns success.
func (c *Context) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Shutdown || c.state == ShuttingDown {
		c.mu.Unlock()
		return nil
	}
	c.state = ShuttingDown
	nodes := make([]*NodeData, 0, len(c.nodes))
	for _, nd := range c.nodes {
		nodes = append(nodes, nd)
	}
	c.nodes = make(map[uint64]*NodeData)
	c.mu.Unlock()

	// Teardown runs without the context lock: substrate calls below may
	// deliver callbacks that walk the registry path.
	unregisterContext(c.handle)

	var firstErr error
	if err := c.engine.Close(); err != nil {
		firstErr = err
	}
	for _, nd := range nodes {
		if err := nd.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := c.session.Close(); err != nil && firstErr == nil {
		firstErr = errors.WrapTransient(err, "Context", "Shutdown", "close session")
	}
	c.cache.Notifier().Close()

	c.mu.Lock()
	c.state = Shutdown
	c.mu.Unlock()

	c.logger.Info("Context shut down", "domain", c.domainID, "session", c.session.ID())
	return firstErr
}
