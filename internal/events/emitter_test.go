package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingStore struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (s *recordingStore) Append(ts time.Time, level, event, msg string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, event)
	return s.err
}

func TestEmitRejectsUnknownEvent(t *testing.T) {
	Clear()

	if _, err := Emit("info", "scene.started", "", nil); err == nil {
		t.Fatal("expected error for unknown event")
	}
	if len(Snapshot()) != 0 {
		t.Error("unknown event must not be buffered")
	}
}

func TestEmitReturnsJSON(t *testing.T) {
	Clear()

	b, err := Emit("info", "node.created", "created", map[string]interface{}{"node_id": "flip1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if e.Name != "node.created" || e.Level != "info" || e.Message != "created" {
		t.Errorf("unexpected event: %+v", e)
	}
	if TotalCount() != 1 {
		t.Errorf("expected total count 1, got %d", TotalCount())
	}
}

func TestEmitPersistsToStore(t *testing.T) {
	Clear()
	s := &recordingStore{}
	SetStore(s)
	defer SetStore(nil)

	Emit("info", "node.created", "", nil)
	Emit("info", "node.evaluated", "", nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.names) != 2 || s.names[0] != "node.created" || s.names[1] != "node.evaluated" {
		t.Errorf("unexpected stored events: %v", s.names)
	}
}

func TestStoreErrorLoggedOnce(t *testing.T) {
	Clear()
	SetStore(&recordingStore{err: errors.New("connection refused")})
	defer SetStore(nil)

	for i := 0; i < 3; i++ {
		Emit("info", "node.evaluated", "", nil)
	}

	errorCount := 0
	for _, e := range Snapshot() {
		if e.Name == "system.error" {
			errorCount++
			if e.Fields["error"] != "connection refused" {
				t.Errorf("unexpected error field: %v", e.Fields["error"])
			}
		}
	}
	if errorCount != 1 {
		t.Errorf("expected exactly 1 system.error event, got %d", errorCount)
	}
}

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, name := range []string{"a", "b", "c", "d"} {
		rb.Add(Event{Name: name})
	}

	snap := rb.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	if snap[0].Name != "b" || snap[2].Name != "d" {
		t.Errorf("unexpected order: %v", snap)
	}
	if rb.Total() != 4 {
		t.Errorf("expected total 4, got %d", rb.Total())
	}

	rb.Clear()
	if len(rb.Snapshot()) != 0 || rb.Total() != 0 {
		t.Error("expected empty buffer after Clear")
	}
}
