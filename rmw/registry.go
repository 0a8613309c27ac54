package rmw

import "sync"

// The process-wide context registry. Discovery deliveries carry a
// handle into this table instead of a Context pointer; lookups that
// miss mean the context is already shutting down and the delivery is
// dropped. The registry lock is held only for the map operation, never
// while running context code.
var (
	registryMu  sync.Mutex
	registry    = make(map[uint64]*Context)
	nextContext uint64
)

func registerContext(c *Context) uint64 {
	registryMu.Lock()
	defer registryMu.Unlock()
	nextContext++
	registry[nextContext] = c
	return nextContext
}

func lookupContext(handle uint64) *Context {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry[handle]
}

func unregisterContext(handle uint64) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, handle)
}

// contextApplier routes discovery events to a Context through the
// registry. It implements discovery.Applier.
type contextApplier struct {
	handle uint64
}

func (a contextApplier) ApplyPut(key string) {
	if c := lookupContext(a.handle); c != nil {
		c.cache.ApplyPut(key)
	}
}

func (a contextApplier) ApplyDelete(key string) {
	if c := lookupContext(a.handle); c != nil {
		c.cache.ApplyDelete(key)
	}
}
