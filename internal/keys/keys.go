// Package keys accumulates the confirmed primary keys of processed sources.
//
// A Registry is written once per source, after that source has completed its
// whole pipeline, and is read through an immutable View by every source that
// runs afterwards.
package keys

import (
	"fmt"
	"sync"
)

// View is a read-only snapshot of published keys.
type View interface {
	// Contains reports whether key is a confirmed primary key of source.
	Contains(source, key string) bool
	// Published reports whether source has published its keys.
	Published(source string) bool
}

// Registry maps source names to their confirmed key sets.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]map[string]struct{})}
}

// Publish records the confirmed keys of a source. Each source may publish
// exactly once; a second call returns an error and leaves the set unchanged.
func (r *Registry) Publish(source string, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sets[source]; exists {
		return fmt.Errorf("keys for source %q already published", source)
	}

	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	r.sets[source] = set
	return nil
}

// Len returns the number of keys published by a source.
func (r *Registry) Len(source string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sets[source])
}

// View returns a snapshot of the sources published so far. Sources published
// after the call are not visible through it.
func (r *Registry) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]map[string]struct{}, len(r.sets))
	for source, set := range r.sets {
		// sets are never mutated after Publish, sharing them is safe
		snapshot[source] = set
	}
	return snapshotView(snapshot)
}

type snapshotView map[string]map[string]struct{}

func (v snapshotView) Contains(source, key string) bool {
	set, ok := v[source]
	if !ok {
		return false
	}
	_, ok = set[key]
	return ok
}

func (v snapshotView) Published(source string) bool {
	_, ok := v[source]
	return ok
}
