package host

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gimelstudio/gsnodes/internal/events"
	"github.com/gimelstudio/gsnodes/internal/node"
	"github.com/gimelstudio/gsnodes/internal/nodes/flip"
	"github.com/gimelstudio/gsnodes/internal/storage/postgres"
)

// fakeSource holds rows oldest first and serves them like
// postgres.Client.QueryEvents. Rows without an EventID are numbered by position.
type fakeSource struct {
	rows      []postgres.EventRow
	err       error
	lastLimit int
	calls     int
}

func (f *fakeSource) QueryEvents(names []string, beforeID int64, limit int) ([]postgres.EventRow, error) {
	f.lastLimit = limit
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var out []postgres.EventRow
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		r := f.rows[i]
		if r.EventID == 0 {
			r.EventID = int64(i + 1)
		}
		if len(names) > 0 && !wanted[r.Event] {
			continue
		}
		if beforeID > 0 && r.EventID >= beforeID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func row(event string, fields map[string]interface{}) postgres.EventRow {
	return postgres.EventRow{Timestamp: time.Now(), Level: "info", Event: event, Fields: fields}
}

func TestRestoreFromEventsNilSource(t *testing.T) {
	state, count, err := RestoreFromEvents(nil, 100)
	if err != nil {
		t.Errorf("expected no error with nil source, got %v", err)
	}
	if state != nil || count != 0 {
		t.Errorf("expected nil state and 0 count, got %v, %d", state, count)
	}
}

func TestRestoreFromEventsEmpty(t *testing.T) {
	src := &fakeSource{}
	state, count, err := RestoreFromEvents(src, 0)
	if err != nil || state != nil || count != 0 {
		t.Errorf("expected empty restore, got %v, %d, %v", state, count, err)
	}
	if src.lastLimit != DefaultRestoreLimit {
		t.Errorf("expected default limit, got %d", src.lastLimit)
	}
}

func TestRestoreFromEventsQueryError(t *testing.T) {
	_, _, err := RestoreFromEvents(&fakeSource{err: errors.New("db down")}, 10)
	if err == nil {
		t.Error("expected query error")
	}
}

func TestRestoreFromEventsReplaysInOrder(t *testing.T) {
	src := &fakeSource{rows: []postgres.EventRow{
		row("node.created", map[string]interface{}{"node_id": "a", "type": "Flip"}),
		row("node.created", map[string]interface{}{"node_id": "b", "type": "Flip"}),
		row("property.changed", map[string]interface{}{"node_id": "a", "key": "direction", "value": "Horizontal"}),
		row("node.muted", map[string]interface{}{"node_id": "b"}),
		row("node.created", map[string]interface{}{"node_id": "c", "type": "Flip"}),
		row("node.removed", map[string]interface{}{"node_id": "c"}),
		row("node.evaluated", map[string]interface{}{"node_id": "a"}),
		row("system.startup", nil),
	}}

	state, count, err := RestoreFromEvents(src, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 6 {
		t.Errorf("expected 6 replayed rows, got %d", count)
	}
	if len(state.Order) != 2 || state.Order[0] != "a" || state.Order[1] != "b" {
		t.Fatalf("unexpected order: %v", state.Order)
	}
	if state.Nodes["a"].Properties["direction"] != "Horizontal" {
		t.Errorf("expected restored direction, got %v", state.Nodes["a"].Properties)
	}
	if state.Nodes["a"].Muted || !state.Nodes["b"].Muted {
		t.Error("unexpected mute flags")
	}
}

func TestRestoreFromEventsSurvivesEvaluationTraffic(t *testing.T) {
	src := &fakeSource{rows: []postgres.EventRow{
		row("node.created", map[string]interface{}{"node_id": "flip1", "type": "Flip"}),
		row("property.changed", map[string]interface{}{"node_id": "flip1", "key": "direction", "value": "Horizontal"}),
		row("node.muted", map[string]interface{}{"node_id": "flip1"}),
	}}
	for i := 0; i < 3*DefaultRestoreLimit; i++ {
		src.rows = append(src.rows, row("node.evaluated", map[string]interface{}{"node_id": "flip1"}))
	}

	state, count, err := RestoreFromEvents(src, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 replayed rows, got %d", count)
	}
	if state == nil || len(state.Order) != 1 {
		t.Fatalf("expected flip1 restored, got %+v", state)
	}
	n := state.Nodes["flip1"]
	if !n.Muted || n.Properties["direction"] != "Horizontal" {
		t.Errorf("unexpected restored node: %+v", n)
	}
}

func TestRestoreFromEventsPagesThroughHistory(t *testing.T) {
	src := &fakeSource{}
	for i := 0; i < 25; i++ {
		src.rows = append(src.rows, row("node.created", map[string]interface{}{
			"node_id": fmt.Sprintf("n%02d", i),
			"type":    "Flip",
		}))
	}

	state, count, err := RestoreFromEvents(src, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 25 || len(state.Order) != 25 {
		t.Fatalf("expected 25 nodes, got count %d order %v", count, state.Order)
	}
	if state.Order[0] != "n00" || state.Order[24] != "n24" {
		t.Errorf("expected chronological order, got %v", state.Order)
	}
	if src.calls != 3 {
		t.Errorf("expected 3 pages, got %d", src.calls)
	}
}

func TestApplyRestoredStateDoesNotEmit(t *testing.T) {
	s := newTestSession(t)

	state := &RestoredState{
		Order: []string{"a", "b"},
		Nodes: map[string]*RestoredNode{
			"a": {Type: "Flip", Properties: map[string]interface{}{"direction": "Horizontal"}},
			"b": {Type: "Flip", Muted: true, Properties: map[string]interface{}{}},
		},
	}

	if err := s.ApplyRestoredState(state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events.Snapshot()) != 0 {
		t.Errorf("expected no events, got %v", eventNames())
	}

	dir, err := node.Lookup[*node.ChoiceProperty](s.Instance("a").Node, flip.KeyDirection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dir.Value() != "Horizontal" {
		t.Errorf("expected Horizontal, got %s", dir.Value())
	}
	if !s.Instance("b").Muted {
		t.Error("expected b muted")
	}
}

func TestApplyRestoredStateSkipsStaleEntries(t *testing.T) {
	s := newTestSession(t)

	state := &RestoredState{
		Order: []string{"gone", "a"},
		Nodes: map[string]*RestoredNode{
			"gone": {Type: "Blur", Properties: map[string]interface{}{}},
			"a":    {Type: "Flip", Properties: map[string]interface{}{"angle": 90.0}},
		},
	}

	if err := s.ApplyRestoredState(state); err == nil {
		t.Error("expected restore to report skipped entries")
	}
	if !s.HasNode("a") || s.HasNode("gone") {
		t.Errorf("unexpected instances: %v", s.IDs())
	}
}

func TestApplyRestoredStateNil(t *testing.T) {
	s := newTestSession(t)
	if err := s.ApplyRestoredState(nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
