// Package node defines the capability interface the host uses to drive
// plugin nodes, and the property registry plugins embed.
package node

import (
	"fmt"
)

// Registry exposes a node's registered properties to the host.
type Registry interface {
	Property(key string) (Property, error)
	InputKeys() []string
	OutputKeys() []string
}

// Node is implemented by every plugin node. The host calls
// InitInputProperties and InitOutputProperties once after construction,
// then MutedEvaluation or Evaluation on each graph pass.
type Node interface {
	Registry

	MetaData() Metadata
	InitInputProperties() error
	InitOutputProperties() error
	MutedEvaluation() error
	Evaluation() error
}

// properties is an insertion-ordered map of key to property.
type properties struct {
	keys  []string
	props map[string]Property
}

func (ps *properties) add(key string, p Property) {
	if ps.props == nil {
		ps.props = make(map[string]Property)
	}
	ps.keys = append(ps.keys, key)
	ps.props[key] = p
}

func (ps *properties) get(key string) (Property, bool) {
	p, ok := ps.props[key]
	return p, ok
}

// Base provides the input and output registries. Plugins embed it.
type Base struct {
	inputs  properties
	outputs properties
}

// AddInputProperty registers p as an input under key.
func (b *Base) AddInputProperty(key string, p Property) error {
	if err := b.checkKey(key, p); err != nil {
		return err
	}
	b.inputs.add(key, p)
	return nil
}

// AddOutputProperty registers p as an output under key.
func (b *Base) AddOutputProperty(key string, p Property) error {
	if err := b.checkKey(key, p); err != nil {
		return err
	}
	b.outputs.add(key, p)
	return nil
}

func (b *Base) checkKey(key string, p Property) error {
	if key == "" {
		return fmt.Errorf("property key required")
	}
	if p == nil {
		return fmt.Errorf("property %s: nil property", key)
	}
	if _, ok := b.inputs.get(key); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProperty, key)
	}
	if _, ok := b.outputs.get(key); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProperty, key)
	}
	return nil
}

// Property returns the input or output registered under key.
func (b *Base) Property(key string) (Property, error) {
	if p, ok := b.inputs.get(key); ok {
		return p, nil
	}
	if p, ok := b.outputs.get(key); ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrPropertyNotFound, key)
}

// InputKeys returns input keys in registration order.
func (b *Base) InputKeys() []string {
	return append([]string{}, b.inputs.keys...)
}

// OutputKeys returns output keys in registration order.
func (b *Base) OutputKeys() []string {
	return append([]string{}, b.outputs.keys...)
}

// IsInput reports whether key is a registered input.
func (b *Base) IsInput(key string) bool {
	_, ok := b.inputs.get(key)
	return ok
}

// Lookup returns the property under key as variant T.
func Lookup[T Property](r Registry, key string) (T, error) {
	var zero T
	p, err := r.Property(key)
	if err != nil {
		return zero, err
	}
	typed, ok := p.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %s", ErrPropertyType, key, p.Kind())
	}
	return typed, nil
}
