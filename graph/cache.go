// Package graph maintains the authoritative in-memory view of the
// discovered computation graph: every known entity plus indices from
// topic name to the endpoints interested in it.
//
// The cache ingests an unordered stream of put/delete events. Events may
// arrive out of creation order (a delete can precede the matching put
// ever being observed), so the consistency model is last-event-wins:
// deleting an unknown key is a no-op and a put after a delete revives
// the entity. No timestamps or sequence numbers are consulted.
package graph

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/c360/rosgraph/entity"
	"github.com/c360/rosgraph/metric"
)

// Cache is the process-local graph view. Safe for concurrent use; the
// discovery engine writes while consumers read.
type Cache struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	metrics  *metric.Metrics
	notifier *Notifier

	// entities maps encoded liveliness key to the decoded entity.
	entities map[string]*entity.Entity
	// topics maps topic name to the set of entity keys bound to it.
	topics map[string]map[string]struct{}
}

// Option configures a Cache
type Option func(*Cache)

// WithLogger sets the logger used for dropped-key reports
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithMetrics wires the core metrics so graph population and event
// counts are exported
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// NewCache creates an empty graph cache
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		logger:   slog.Default(),
		notifier: newNotifier(),
		entities: make(map[string]*entity.Entity),
		topics:   make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notifier returns the change notifier consumers subscribe to
func (c *Cache) Notifier() *Notifier {
	return c.notifier
}

// ApplyPut decodes key and inserts or overwrites the entity. A key that
// fails to decode is logged and dropped: malformed announcements from
// remote peers must never take the cache down.
func (c *Cache) ApplyPut(key string) {
	e, err := entity.Decode(key)
	if err != nil {
		c.logger.Warn("Dropping malformed liveliness key", "key", key, "error", err)
		if c.metrics != nil {
			c.metrics.RecordDecodeFailure()
		}
		return
	}

	c.mu.Lock()
	c.entities[key] = e
	if ti := e.TopicInfo(); ti != nil {
		set, ok := c.topics[ti.Name]
		if !ok {
			set = make(map[string]struct{})
			c.topics[ti.Name] = set
		}
		set[key] = struct{}{}
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordDiscoveryEvent("put")
		c.exportPopulation()
	}
	c.notifier.notify(Change{Kind: ChangePut, Key: key, Entity: e})
}

// ApplyDelete removes the entity for key and its topic-index entries.
// Deleting an unknown key is a silent no-op.
func (c *Cache) ApplyDelete(key string) {
	c.mu.Lock()
	e, ok := c.entities[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.entities, key)
	if ti := e.TopicInfo(); ti != nil {
		if set, ok := c.topics[ti.Name]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(c.topics, ti.Name)
			}
		}
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordDiscoveryEvent("delete")
		c.exportPopulation()
	}
	c.notifier.notify(Change{Kind: ChangeDelete, Key: key, Entity: e})
}

// SnapshotFor returns the current entities of the given kind bound to a
// topic name. The returned slice is sorted by key for deterministic
// iteration and is safe to retain.
func (c *Cache) SnapshotFor(topicName string, kind entity.Kind) []*entity.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set, ok := c.topics[topicName]
	if !ok {
		return nil
	}

	keys := make([]string, 0, len(set))
	for key := range set {
		if c.entities[key].Kind() == kind {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	result := make([]*entity.Entity, 0, len(keys))
	for _, key := range keys {
		result = append(result, c.entities[key])
	}
	return result
}

// CountEntities returns how many entities of a kind are bound to a topic
func (c *Cache) CountEntities(topicName string, kind entity.Kind) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for key := range c.topics[topicName] {
		if c.entities[key].Kind() == kind {
			count++
		}
	}
	return count
}

// NodeName identifies one known node in the graph
type NodeName struct {
	Name      string
	Namespace string
	Enclave   string
}

// NodeNames returns the identity of every known node, sorted by
// fully qualified name
func (c *Cache) NodeNames() []NodeName {
	c.mu.RLock()
	names := make([]NodeName, 0)
	for _, e := range c.entities {
		if e.Kind() != entity.KindNode {
			continue
		}
		info := e.NodeInfo()
		names = append(names, NodeName{
			Name:      info.Name,
			Namespace: info.Namespace,
			Enclave:   info.Enclave,
		})
	}
	c.mu.RUnlock()

	sort.Slice(names, func(i, j int) bool {
		if names[i].Namespace != names[j].Namespace {
			return names[i].Namespace < names[j].Namespace
		}
		return names[i].Name < names[j].Name
	})
	return names
}

// TopicNamesAndTypes returns every topic with endpoints and the sorted,
// de-duplicated set of type names seen on it
func (c *Cache) TopicNamesAndTypes() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string][]string, len(c.topics))
	for topicName, set := range c.topics {
		seen := make(map[string]struct{})
		for key := range set {
			if ti := c.entities[key].TopicInfo(); ti != nil {
				seen[ti.TypeName] = struct{}{}
			}
		}
		types := make([]string, 0, len(seen))
		for typeName := range seen {
			types = append(types, typeName)
		}
		sort.Strings(types)
		result[topicName] = types
	}
	return result
}

// EntitiesByNode returns every entity announced by the given node of the
// given session, the node entity itself included, sorted by entity id
func (c *Cache) EntitiesByNode(sessionID string, nodeID uint64) []*entity.Entity {
	c.mu.RLock()
	result := make([]*entity.Entity, 0)
	for _, e := range c.entities {
		if e.SessionID() == sessionID && e.NodeID() == nodeID {
			result = append(result, e)
		}
	}
	c.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].EntityID() < result[j].EntityID()
	})
	return result
}

// Keys returns the sorted set of all known liveliness keys
func (c *Cache) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entities))
	for key := range c.entities {
		keys = append(keys, key)
	}
	c.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Size returns the number of known entities
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}

// exportPopulation refreshes the per-kind entity gauges
func (c *Cache) exportPopulation() {
	counts := make(map[entity.Kind]int)

	c.mu.RLock()
	for _, e := range c.entities {
		counts[e.Kind()]++
	}
	topicCount := len(c.topics)
	c.mu.RUnlock()

	for _, kind := range []entity.Kind{
		entity.KindNode, entity.KindPublisher, entity.KindSubscriber,
		entity.KindService, entity.KindClient,
	} {
		c.metrics.RecordEntityCount(kind.String(), counts[kind])
	}
	c.metrics.RecordTopicCount(topicCount)
}
