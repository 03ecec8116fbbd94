package node

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Category groups nodes in the host's node palette.
type Category string

const (
	CategoryInput     Category = "INPUT"
	CategoryOutput    Category = "OUTPUT"
	CategoryBlend     Category = "BLEND"
	CategoryColor     Category = "COLOR"
	CategoryConvert   Category = "CONVERT"
	CategoryDistort   Category = "DISTORT"
	CategoryFilter    Category = "FILTER"
	CategoryMask      Category = "MASK"
	CategoryTransform Category = "TRANSFORM"
	CategoryValue     Category = "VALUE"
)

var categories = map[Category]struct{}{
	CategoryInput:     {},
	CategoryOutput:    {},
	CategoryBlend:     {},
	CategoryColor:     {},
	CategoryConvert:   {},
	CategoryDistort:   {},
	CategoryFilter:    {},
	CategoryMask:      {},
	CategoryTransform: {},
	CategoryValue:     {},
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categories[c]; !ok {
		return "", fmt.Errorf("unknown node category: %s", s)
	}
	return c, nil
}

// Metadata is the static description shown in the node browser.
type Metadata struct {
	Name        string          `json:"name"`
	Author      string          `json:"author"`
	Version     *semver.Version `json:"version"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
}

// Map returns the metadata as the key/value mapping consumed by the host registry.
func (m Metadata) Map() map[string]interface{} {
	version := ""
	if m.Version != nil {
		version = m.Version.String()
	}
	return map[string]interface{}{
		"name":        m.Name,
		"author":      m.Author,
		"version":     version,
		"category":    string(m.Category),
		"description": m.Description,
	}
}

// Validate checks that the fields required by the node browser are set.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("node metadata: name required")
	}
	if m.Version == nil {
		return fmt.Errorf("node metadata %s: version required", m.Name)
	}
	if _, err := ParseCategory(string(m.Category)); err != nil {
		return fmt.Errorf("node metadata %s: %w", m.Name, err)
	}
	return nil
}
