package devices

import (
	"sync"
)

// Registry caches one CodeMapping per device id. Mappings are rebuilt only
// when rediscovery reports a different status-code set.
type Registry struct {
	mu       sync.RWMutex
	mappings map[string]*CodeMapping
}

// NewRegistry creates an empty mapping registry
func NewRegistry() *Registry {
	return &Registry{
		mappings: make(map[string]*CodeMapping),
	}
}

// Get retrieves the cached mapping for a device id
func (r *Registry) Get(deviceID string) (*CodeMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mapping, ok := r.mappings[deviceID]
	return mapping, ok
}

// Observe resolves and caches the mapping for one discovered device. When the
// status-code set matches the cached signature the existing mapping is kept;
// otherwise it is invalidated and rebuilt. Returns the active mapping and
// whether it was (re)built.
func (r *Registry) Observe(deviceID, category string, statusCodes []string) (*CodeMapping, bool) {
	signature := Signature(statusCodes)

	r.mu.RLock()
	existing, ok := r.mappings[deviceID]
	r.mu.RUnlock()
	if ok && existing.Signature == signature {
		return existing, false
	}

	mapping := Resolve(category, statusCodes)

	r.mu.Lock()
	r.mappings[deviceID] = mapping
	r.mu.Unlock()
	return mapping, true
}

// Restore seeds the cache with persisted mappings (startup warm-up)
func (r *Registry) Restore(mappings map[string]*CodeMapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, mapping := range mappings {
		r.mappings[id] = mapping
	}
}

// Snapshot returns a copy of the current cache for persistence
func (r *Registry) Snapshot() map[string]*CodeMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*CodeMapping, len(r.mappings))
	for id, mapping := range r.mappings {
		out[id] = mapping
	}
	return out
}

// Forget removes the cached mapping for a device id
func (r *Registry) Forget(deviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mappings, deviceID)
}

// Len returns the number of cached mappings
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mappings)
}
