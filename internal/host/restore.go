package host

import (
	"errors"
	"fmt"

	"github.com/gimelstudio/gsnodes/internal/events"
	"github.com/gimelstudio/gsnodes/internal/storage/postgres"
)

// DefaultRestoreLimit is the default page size used to read the event log.
const DefaultRestoreLimit = 1000

// replayedEvents are the events that change session state.
var replayedEvents = []string{
	"node.created",
	"node.removed",
	"node.muted",
	"node.unmuted",
	"property.changed",
}

// EventSource returns persisted events named in names, newest first.
// A positive beforeID restricts the result to events older than that ID.
type EventSource interface {
	QueryEvents(names []string, beforeID int64, limit int) ([]postgres.EventRow, error)
}

// RestoredNode is an instance reconstructed from the event log.
type RestoredNode struct {
	Type       string
	Muted      bool
	Properties map[string]interface{}
}

// RestoredState is the session content reconstructed from the event log.
type RestoredState struct {
	Order []string
	Nodes map[string]*RestoredNode
}

// RestoreFromEvents rebuilds instances, mute flags and property values from
// persisted events. The whole log is read in pages of limit events, so
// evaluations and other traffic never push a node's history out of reach.
// Returns nil state if src is nil or holds no replayable events.
func RestoreFromEvents(src EventSource, limit int) (*RestoredState, int, error) {
	if src == nil {
		return nil, 0, nil
	}

	if limit <= 0 {
		limit = DefaultRestoreLimit
	}

	var rows []postgres.EventRow
	var before int64
	for {
		page, err := src.QueryEvents(replayedEvents, before, limit)
		if err != nil {
			return nil, 0, err
		}
		rows = append(rows, page...)
		if len(page) < limit {
			break
		}
		oldest := page[len(page)-1].EventID
		if oldest <= 1 || (before > 0 && oldest >= before) {
			break
		}
		before = oldest
	}

	if len(rows) == 0 {
		return nil, 0, nil
	}

	// Pages arrive newest first.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	state := &RestoredState{
		Nodes: make(map[string]*RestoredNode),
	}

	for _, row := range rows {
		nodeID, _ := row.Fields["node_id"].(string)
		if nodeID == "" {
			continue
		}

		switch row.Event {
		case "node.created":
			typeName, _ := row.Fields["type"].(string)
			if _, ok := state.Nodes[nodeID]; !ok {
				state.Order = append(state.Order, nodeID)
			}
			state.Nodes[nodeID] = &RestoredNode{
				Type:       typeName,
				Properties: make(map[string]interface{}),
			}

		case "node.removed":
			delete(state.Nodes, nodeID)
			for i, id := range state.Order {
				if id == nodeID {
					state.Order = append(state.Order[:i], state.Order[i+1:]...)
					break
				}
			}

		case "node.muted", "node.unmuted":
			if n, ok := state.Nodes[nodeID]; ok {
				n.Muted = row.Event == "node.muted"
			}

		case "property.changed":
			key, _ := row.Fields["key"].(string)
			if n, ok := state.Nodes[nodeID]; ok && key != "" {
				n.Properties[key] = row.Fields["value"]
			}
		}
	}

	return state, len(rows), nil
}

// ApplyRestoredState recreates the restored instances without emitting events.
// Instances or values that no longer apply are skipped and reported together.
func (s *Session) ApplyRestoredState(state *RestoredState) error {
	if state == nil {
		return nil
	}

	var errs []error
	for _, id := range state.Order {
		rn := state.Nodes[id]
		inst, err := s.createNode(id, rn.Type)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		for key, value := range rn.Properties {
			if err := s.setProperty(id, key, value); err != nil {
				errs = append(errs, err)
			}
		}

		s.mu.Lock()
		inst.Muted = rn.Muted
		s.mu.Unlock()
	}

	if len(errs) > 0 {
		return fmt.Errorf("restore incomplete: %w", errors.Join(errs...))
	}
	return nil
}

// EmitStartupRestore emits the system.startup_restore event.
func EmitStartupRestore(restored int, projectID string) {
	events.Emit("info", "system.startup_restore", "", map[string]interface{}{
		"restored":   restored,
		"project_id": projectID,
	})
}
