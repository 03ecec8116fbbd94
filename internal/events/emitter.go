package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

var buffer = NewRingBuffer(256)

// Store persists emitted events.
type Store interface {
	Append(ts time.Time, level, event, msg string, fields map[string]interface{}) error
}

var (
	store         Store
	storeMu       sync.RWMutex
	storeErrorLog bool
)

// SetStore sets the backing store for event persistence. Pass nil to disable.
func SetStore(s Store) {
	storeMu.Lock()
	store = s
	storeErrorLog = false
	storeMu.Unlock()
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emit records an event in the ring buffer, broadcasts it and persists it.
// It returns the JSON encoding of the event.
func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	broadcast(e)

	storeMu.RLock()
	s := store
	storeMu.RUnlock()

	if s != nil {
		if err := s.Append(ts, level, name, msg, fields); err != nil {
			reportStoreError(err)
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return b, nil
}

// reportStoreError records the first store failure as system.error.
// It goes straight to the buffer so a failing store cannot recurse.
func reportStoreError(err error) {
	storeMu.Lock()
	if storeErrorLog {
		storeMu.Unlock()
		return
	}
	storeErrorLog = true
	storeMu.Unlock()

	errEvent := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     "error",
		Name:      "system.error",
		Message:   "event store append failed",
		Fields: map[string]interface{}{
			"error": err.Error(),
		},
	}
	buffer.Add(errEvent)
	broadcast(errEvent)
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// TotalCount returns the number of events emitted since the last Clear.
func TotalCount() uint64 {
	return buffer.Total()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
