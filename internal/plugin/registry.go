// Package plugin maintains the catalog of node types the host can instantiate.
package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gimelstudio/gsnodes/internal/node"
	"github.com/gimelstudio/gsnodes/internal/nodes/flip"
)

// ErrUnknownType is returned for node types not in the catalog.
var ErrUnknownType = errors.New("unknown node type")

// Constructor creates a fresh, uninitialized node.
type Constructor func() node.Node

// Registry maps node type names to constructors.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
	meta  map[string]node.Metadata
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ctors: make(map[string]Constructor),
		meta:  make(map[string]node.Metadata),
	}
}

// Builtins returns a registry holding the nodes shipped with the host.
func Builtins() *Registry {
	r := NewRegistry()
	if err := r.Register(flip.Name, flip.New); err != nil {
		panic(err)
	}
	return r
}

// Register adds a node type. The constructor is called once to read and
// validate its metadata; the name must match the metadata name.
func (r *Registry) Register(name string, ctor Constructor) error {
	if ctor == nil {
		return fmt.Errorf("plugin %s: nil constructor", name)
	}

	meta := ctor().MetaData()
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("plugin %s: %w", name, err)
	}
	if meta.Name != name {
		return fmt.Errorf("plugin %s: metadata name is %s", name, meta.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ctors[name]; ok {
		return fmt.Errorf("plugin already registered: %s", name)
	}
	r.ctors[name] = ctor
	r.meta[name] = meta
	return nil
}

// Filter returns a registry holding the types for which keep returns true.
func (r *Registry) Filter(keep func(name string) bool) *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := NewRegistry()
	for name, ctor := range r.ctors {
		if keep(name) {
			out.ctors[name] = ctor
			out.meta[name] = r.meta[name]
		}
	}
	return out
}

// Exists returns true if the node type is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[name]
	return ok
}

// New instantiates a node of the given type.
func (r *Registry) New(name string) (node.Node, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return ctor(), nil
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metadata returns the metadata of all registered types, sorted by name.
func (r *Registry) Metadata() []node.Metadata {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]node.Metadata, 0, len(names))
	for _, name := range names {
		if m, ok := r.meta[name]; ok {
			result = append(result, m)
		}
	}
	return result
}
