package node

import "errors"

var (
	// ErrPropertyNotFound is returned when no property is registered under a key.
	ErrPropertyNotFound = errors.New("property not found")

	// ErrPropertyType is returned when a property is not of the requested variant.
	ErrPropertyType = errors.New("property type mismatch")

	// ErrDuplicateProperty is returned when a key is registered twice on one node.
	ErrDuplicateProperty = errors.New("duplicate property key")

	// ErrInvalidValue is returned when a property rejects a value.
	ErrInvalidValue = errors.New("invalid property value")
)
