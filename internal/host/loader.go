package host

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gimelstudio/gsnodes/internal/events"
)

// Project lists the node instances of a saved project.
type Project struct {
	Version int           `json:"version"`
	Nodes   []ProjectNode `json:"nodes"`
}

// ProjectNode is one saved instance with its property values.
type ProjectNode struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Muted      bool                   `json:"muted"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// LoadProject loads a project from a JSON file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project JSON: %w", err)
	}

	if p.Version != 1 {
		return nil, fmt.Errorf("unsupported project version: %d", p.Version)
	}

	return &p, nil
}

// ApplyProject creates the project's instances in the session.
// It stops at the first instance that cannot be created or configured.
// project.loaded is emitted only when every instance was applied.
func (s *Session) ApplyProject(p *Project) error {
	for _, pn := range p.Nodes {
		if _, err := s.CreateNode(pn.ID, pn.Type); err != nil {
			return err
		}
		for key, value := range pn.Properties {
			if err := s.SetProperty(pn.ID, key, value); err != nil {
				return err
			}
		}
		if err := s.SetMuted(pn.ID, pn.Muted); err != nil {
			return err
		}
	}

	events.Emit("info", "project.loaded", "", map[string]interface{}{
		"nodes": len(p.Nodes),
	})
	return nil
}
