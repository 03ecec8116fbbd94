package events

import (
	"fmt"
	"testing"
	"time"
)

// drain reads n events from sub or fails after a short wait.
func drain(t *testing.T, sub Subscriber, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	for len(out) < n {
		select {
		case e, ok := <-sub:
			if !ok {
				t.Fatalf("subscriber closed after %d events", len(out))
			}
			out = append(out, e)
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestSubscriberSeesNodeLifecycleInOrder(t *testing.T) {
	CloseAllSubscribers()
	Clear()
	sub := Subscribe()
	defer Unsubscribe(sub)

	Emit("info", "node.created", "", map[string]interface{}{"node_id": "flip1", "type": "Flip"})
	Emit("info", "property.changed", "", map[string]interface{}{"node_id": "flip1", "key": "direction"})
	Emit("info", "node.muted", "", map[string]interface{}{"node_id": "flip1"})
	Emit("info", "node.evaluated", "", map[string]interface{}{"node_id": "flip1", "muted": true})

	got := drain(t, sub, 4)
	want := []string{"node.created", "property.changed", "node.muted", "node.evaluated"}
	for i, e := range got {
		if e.Name != want[i] {
			t.Errorf("event %d: got %s, want %s", i, e.Name, want[i])
		}
		if e.Fields["node_id"] != "flip1" {
			t.Errorf("event %d: unexpected node_id %v", i, e.Fields["node_id"])
		}
	}
}

func TestEveryEditorReceivesEachEvent(t *testing.T) {
	CloseAllSubscribers()
	editors := []Subscriber{Subscribe(), Subscribe(), Subscribe()}
	defer CloseAllSubscribers()

	if SubscriberCount() != len(editors) {
		t.Fatalf("expected %d subscribers, got %d", len(editors), SubscriberCount())
	}

	Emit("info", "project.loaded", "", map[string]interface{}{"nodes": 2})

	for i, sub := range editors {
		if e := drain(t, sub, 1)[0]; e.Name != "project.loaded" {
			t.Errorf("editor %d: got %s", i, e.Name)
		}
	}
}

func TestSlowSubscriberDoesNotBlockEmit(t *testing.T) {
	CloseAllSubscribers()
	Clear()
	sub := Subscribe()
	defer Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(sub)+20; i++ {
			Emit("info", "node.evaluated", "", map[string]interface{}{"node_id": fmt.Sprintf("n%d", i)})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber")
	}

	if len(sub) != cap(sub) {
		t.Errorf("expected a full subscriber buffer, got %d of %d", len(sub), cap(sub))
	}
	if got := len(RecentEvents(0)); got != cap(sub)+20 {
		t.Errorf("ring buffer should keep dropped events, got %d", got)
	}
}

func TestUnsubscribeAfterShutdown(t *testing.T) {
	CloseAllSubscribers()
	sub := Subscribe()

	CloseAllSubscribers()
	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel after shutdown")
	}

	// Handlers still unsubscribe on their way out; that must not panic.
	Unsubscribe(sub)
	Unsubscribe(sub)

	if SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", SubscriberCount())
	}
}

func TestRecentEventsWindow(t *testing.T) {
	Clear()
	for i := 0; i < 6; i++ {
		Emit("info", "property.changed", "", map[string]interface{}{"node_id": fmt.Sprintf("n%d", i)})
	}

	tests := []struct {
		n     int
		count int
		first string
	}{
		{n: 0, count: 6, first: "n0"},
		{n: 2, count: 2, first: "n4"},
		{n: 6, count: 6, first: "n0"},
		{n: 50, count: 6, first: "n0"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			got := RecentEvents(tt.n)
			if len(got) != tt.count {
				t.Fatalf("expected %d events, got %d", tt.count, len(got))
			}
			if got[0].Fields["node_id"] != tt.first {
				t.Errorf("expected first %s, got %v", tt.first, got[0].Fields["node_id"])
			}
		})
	}
}
