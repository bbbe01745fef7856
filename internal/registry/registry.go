// Package registry holds the key -> item mapping the dispatcher consults on
// every request. A reload builds a brand new Snapshot and publishes it
// atomically; requests already holding a Snapshot keep using it until they
// finish, and never observe a partially-built map.
package registry

import (
	"fmt"
	"sync/atomic"
)

// Func is a provider function: given the parsed argument list for its key,
// it returns a response value (int64, float64, or string) or an error.
// Argument validation — arity, mode enums, defaults — is the function's
// own responsibility; the registry never inspects arguments.
type Func func(args []string) (interface{}, error)

// Item is a named entry in a Snapshot.
type Item struct {
	Key string
	Fn  Func
}

// Snapshot is an immutable key -> Item mapping. Once built it is never
// mutated; a reload produces a new Snapshot rather than editing this one.
type Snapshot struct {
	items map[string]Item
}

// NewSnapshot builds a Snapshot from a list of items, rejecting duplicate
// keys outright rather than letting one silently shadow another.
func NewSnapshot(items []Item) (*Snapshot, error) {
	m := make(map[string]Item, len(items))
	for _, it := range items {
		if _, exists := m[it.Key]; exists {
			return nil, fmt.Errorf("registry: duplicate key %q", it.Key)
		}
		m[it.Key] = it
	}
	return &Snapshot{items: m}, nil
}

// Lookup returns the item registered under key, if any.
func (s *Snapshot) Lookup(key string) (Item, bool) {
	it, ok := s.items[key]
	return it, ok
}

// Len reports how many items the snapshot holds.
func (s *Snapshot) Len() int {
	return len(s.items)
}

// Registry holds the currently-live Snapshot behind an atomic pointer so
// that readers never take a lock and a reload never blocks a reader or
// partially exposes its new map.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// New builds a Registry already serving the given Snapshot.
func New(initial *Snapshot) *Registry {
	r := &Registry{}
	r.current.Store(initial)
	return r
}

// Load returns the Snapshot in effect for the caller's request. The
// caller should take this reference once per request and use it
// throughout, rather than calling Load repeatedly, so a concurrent
// Publish cannot change results mid-request.
func (r *Registry) Load() *Snapshot {
	return r.current.Load()
}

// Publish atomically replaces the live Snapshot. In-flight Load() results
// already handed out are unaffected; only subsequent Load() calls observe
// the new Snapshot.
func (r *Registry) Publish(s *Snapshot) {
	r.current.Store(s)
}
