// Package host drives plugin nodes the way the application does: it
// instantiates them from the catalog, initializes their properties once,
// and runs muted or normal evaluations on request.
package host

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gimelstudio/gsnodes/internal/events"
	"github.com/gimelstudio/gsnodes/internal/imaging"
	"github.com/gimelstudio/gsnodes/internal/node"
	"github.com/gimelstudio/gsnodes/internal/plugin"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrNodeExists   = errors.New("node already exists")
)

// Instance is a node placed in the session.
type Instance struct {
	ID    string
	Type  string
	Muted bool
	Node  node.Node
}

// Session holds the node instances of one project.
// Evaluations are serialized; the API and MQTT handlers call in concurrently.
type Session struct {
	mu        sync.RWMutex
	catalog   *plugin.Registry
	instances map[string]*Instance
	order     []string
}

// NewSession creates an empty session backed by catalog.
func NewSession(catalog *plugin.Registry) *Session {
	return &Session{
		catalog:   catalog,
		instances: make(map[string]*Instance),
	}
}

// CreateNode instantiates a node of typeName under id and initializes its
// input and output properties.
func (s *Session) CreateNode(id, typeName string) (*Instance, error) {
	inst, err := s.createNode(id, typeName)
	if err != nil {
		return nil, err
	}

	events.Emit("info", "node.created", "", map[string]interface{}{
		"node_id": id,
		"type":    typeName,
	})
	return inst, nil
}

func (s *Session) createNode(id, typeName string) (*Instance, error) {
	if id == "" {
		return nil, fmt.Errorf("node id required")
	}
	if !s.catalog.Exists(typeName) {
		return nil, fmt.Errorf("%w: %s", plugin.ErrUnknownType, typeName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeExists, id)
	}

	n, err := s.catalog.New(typeName)
	if err != nil {
		return nil, err
	}
	if err := n.InitInputProperties(); err != nil {
		return nil, fmt.Errorf("failed to init inputs of %s: %w", id, err)
	}
	if err := n.InitOutputProperties(); err != nil {
		return nil, fmt.Errorf("failed to init outputs of %s: %w", id, err)
	}

	inst := &Instance{ID: id, Type: typeName, Node: n}
	s.instances[id] = inst
	s.order = append(s.order, id)
	return inst, nil
}

// RemoveNode drops the instance.
func (s *Session) RemoveNode(id string) error {
	s.mu.Lock()
	if _, ok := s.instances[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	delete(s.instances, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	events.Emit("info", "node.removed", "", map[string]interface{}{"node_id": id})
	return nil
}

// HasNode returns true if id is an instance in the session.
func (s *Session) HasNode(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.instances[id]
	return ok
}

// Instance returns the instance under id, or nil.
func (s *Session) Instance(id string) *Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instances[id]
}

// IDs returns instance IDs in creation order.
func (s *Session) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.order...)
}

// SetMuted switches the instance between muted and normal evaluation.
func (s *Session) SetMuted(id string, muted bool) error {
	s.mu.Lock()
	inst, ok := s.instances[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	changed := inst.Muted != muted
	inst.Muted = muted
	s.mu.Unlock()

	if !changed {
		return nil
	}
	name := "node.unmuted"
	if muted {
		name = "node.muted"
	}
	events.Emit("info", name, "", map[string]interface{}{"node_id": id})
	return nil
}

// SetProperty assigns a value from a remote editor to an input property.
func (s *Session) SetProperty(id, key string, value interface{}) error {
	if err := s.setProperty(id, key, value); err != nil {
		return err
	}

	events.Emit("info", "property.changed", "", map[string]interface{}{
		"node_id": id,
		"key":     key,
		"value":   value,
	})
	return nil
}

func (s *Session) setProperty(id, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if !isInput(inst.Node, key) {
		return fmt.Errorf("%w: %s has no input %s", node.ErrPropertyNotFound, id, key)
	}
	p, err := inst.Node.Property(key)
	if err != nil {
		return err
	}
	if err := p.Set(value); err != nil {
		return fmt.Errorf("failed to set %s.%s: %w", id, key, err)
	}
	return nil
}

// SetInputImage connects an image to an image input of the instance.
func (s *Session) SetInputImage(id, key string, img *imaging.Image) error {
	s.mu.Lock()
	inst, ok := s.instances[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if !isInput(inst.Node, key) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s has no input %s", node.ErrPropertyNotFound, id, key)
	}
	p, err := node.Lookup[*node.ImageProperty](inst.Node, key)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	p.SetImage(img)
	s.mu.Unlock()

	name := ""
	if img != nil {
		name = img.Name
	}
	events.Emit("info", "property.image", "", map[string]interface{}{
		"node_id": id,
		"key":     key,
		"image":   name,
	})
	return nil
}

// Evaluate runs the instance's muted or normal evaluation.
func (s *Session) Evaluate(id string) error {
	s.mu.Lock()
	inst, ok := s.instances[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	start := time.Now()
	var err error
	if inst.Muted {
		err = inst.Node.MutedEvaluation()
	} else {
		err = inst.Node.Evaluation()
	}
	muted := inst.Muted
	s.mu.Unlock()

	if err != nil {
		events.Emit("error", "node.failed", "evaluation failed", map[string]interface{}{
			"node_id": id,
			"muted":   muted,
			"error":   err.Error(),
		})
		return fmt.Errorf("evaluation of %s failed: %w", id, err)
	}

	events.Emit("info", "node.evaluated", "", map[string]interface{}{
		"node_id":     id,
		"muted":       muted,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// Output returns the image held by an image output of the instance.
func (s *Session) Output(id, key string) (*imaging.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	p, err := node.Lookup[*node.ImageProperty](inst.Node, key)
	if err != nil {
		return nil, err
	}
	return p.Value(), nil
}

func isInput(n node.Node, key string) bool {
	for _, k := range n.InputKeys() {
		if k == key {
			return true
		}
	}
	return false
}
