package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gimelstudio/gsnodes/internal/events"
	"github.com/gimelstudio/gsnodes/internal/nodes/flip"
)

// dialEvents starts a server for the event stream and connects a client.
func dialEvents(t *testing.T) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewMux())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readNames reads n events and returns their names.
func readNames(t *testing.T, conn *websocket.Conn, n int) []string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	names := make([]string, 0, n)
	for len(names) < n {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read after %v: %v", names, err)
		}
		var e events.Event
		if err := json.Unmarshal(msg, &e); err != nil {
			t.Fatalf("failed to decode event: %v", err)
		}
		names = append(names, e.Name)
	}
	return names
}

func equalNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func waitForSubscribers(t *testing.T, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if events.SubscriberCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("expected %d subscribers, got %d", want, events.SubscriberCount())
}

func TestEventStreamReplaysSessionHistory(t *testing.T) {
	events.CloseAllSubscribers()
	s := setupSession(t)
	if err := s.SetProperty("flip1", flip.KeyDirection, flip.DirectionHorizontal); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Evaluate("flip1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conn := dialEvents(t)

	got := readNames(t, conn, 3)
	want := []string{"node.created", "property.changed", "node.evaluated"}
	if !equalNames(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestEventStreamFollowsLiveEdits(t *testing.T) {
	events.CloseAllSubscribers()
	s := setupSession(t)
	conn := dialEvents(t)

	// The replayed node.created confirms the subscription is live.
	readNames(t, conn, 1)

	if err := s.SetMuted("flip1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Evaluate("flip1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := readNames(t, conn, 2)
	if !equalNames(got, []string{"node.muted", "node.evaluated"}) {
		t.Errorf("unexpected live events: %v", got)
	}
}

func TestEventStreamClosedOnShutdown(t *testing.T) {
	events.CloseAllSubscribers()
	setupSession(t)
	conn := dialEvents(t)
	readNames(t, conn, 1)

	events.CloseAllSubscribers()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the server to close the stream")
	}
	if events.SubscriberCount() != 0 {
		t.Errorf("expected no subscribers, got %d", events.SubscriberCount())
	}
}

func TestEventStreamClientDisconnect(t *testing.T) {
	events.CloseAllSubscribers()
	setupSession(t)
	conn := dialEvents(t)
	readNames(t, conn, 1)
	waitForSubscribers(t, 1)

	conn.Close()

	waitForSubscribers(t, 0)
}

func TestEventStreamSkipsUnencodableEvents(t *testing.T) {
	events.CloseAllSubscribers()
	events.Clear()
	encodeErrLogged.Store(false)

	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	// Emit still records the event; only its JSON rendering fails.
	events.Emit("info", "property.changed", "", map[string]interface{}{"value": func() {}})
	events.Emit("info", "property.changed", "", map[string]interface{}{"value": make(chan int)})
	events.Emit("info", "node.evaluated", "", map[string]interface{}{"node_id": "flip1"})

	conn := dialEvents(t)

	got := readNames(t, conn, 1)
	if got[0] != "node.evaluated" {
		t.Errorf("expected node.evaluated, got %v", got)
	}
	if n := strings.Count(logs.String(), "dropping unencodable"); n != 1 {
		t.Errorf("expected one logged encode failure, got %d:\n%s", n, logs.String())
	}
}
