package host

import (
	"github.com/gimelstudio/gsnodes/internal/imaging"
	"github.com/gimelstudio/gsnodes/internal/node"
)

// PropertyInfo describes one property of an instance for remote views.
type PropertyInfo struct {
	Key              string      `json:"key"`
	Kind             node.Kind   `json:"kind"`
	Label            string      `json:"label"`
	UseSocket        bool        `json:"use_socket"`
	UsePropertyPanel bool        `json:"use_property_panel"`
	Visible          bool        `json:"visible"`
	Value            interface{} `json:"value,omitempty"`
	Choices          []string    `json:"choices,omitempty"`
}

// InstanceInfo is a read-only view of an instance.
type InstanceInfo struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Muted   bool           `json:"muted"`
	Inputs  []PropertyInfo `json:"inputs"`
	Outputs []PropertyInfo `json:"outputs"`
}

// Describe returns the view of the instance under id.
func (s *Session) Describe(id string) (*InstanceInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, false
	}
	return describe(inst), true
}

// Instances returns views of all instances in creation order.
func (s *Session) Instances() []*InstanceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*InstanceInfo, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, describe(s.instances[id]))
	}
	return result
}

func describe(inst *Instance) *InstanceInfo {
	return &InstanceInfo{
		ID:      inst.ID,
		Type:    inst.Type,
		Muted:   inst.Muted,
		Inputs:  describeProperties(inst.Node, inst.Node.InputKeys()),
		Outputs: describeProperties(inst.Node, inst.Node.OutputKeys()),
	}
}

func describeProperties(r node.Registry, keys []string) []PropertyInfo {
	infos := make([]PropertyInfo, 0, len(keys))
	for _, key := range keys {
		p, err := r.Property(key)
		if err != nil {
			continue
		}
		info := PropertyInfo{
			Key:              key,
			Kind:             p.Kind(),
			Label:            p.Label(),
			UseSocket:        p.UseSocket(),
			UsePropertyPanel: p.UsePropertyPanel(),
			Visible:          p.Visible(),
		}
		switch v := p.Get().(type) {
		case *imaging.Image:
			// Images are reported by name only.
			if v != nil {
				info.Value = v.Name
			}
		default:
			info.Value = v
		}
		if c, ok := p.(*node.ChoiceProperty); ok {
			info.Choices = c.Choices()
		}
		infos = append(infos, info)
	}
	return infos
}
