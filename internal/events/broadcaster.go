package events

import (
	"sync"
)

// Subscriber receives events as they are emitted.
type Subscriber chan Event

// Broadcaster fans events out to live subscribers such as websocket clients.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
}

var broadcaster = &Broadcaster{
	subscribers: make(map[Subscriber]struct{}),
}

// Subscribe adds a new subscriber and returns its channel.
func Subscribe() Subscriber {
	ch := make(Subscriber, 64)
	broadcaster.mu.Lock()
	broadcaster.subscribers[ch] = struct{}{}
	broadcaster.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
// Unsubscribing twice is a no-op.
func Unsubscribe(sub Subscriber) {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if _, ok := broadcaster.subscribers[sub]; !ok {
		return
	}
	delete(broadcaster.subscribers, sub)
	close(sub)
}

// CloseAllSubscribers closes every subscriber channel. Called on shutdown.
func CloseAllSubscribers() {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	for sub := range broadcaster.subscribers {
		close(sub)
	}
	broadcaster.subscribers = make(map[Subscriber]struct{})
}

// broadcast sends e to all subscribers, dropping it for any subscriber whose buffer is full.
func broadcast(e Event) {
	broadcaster.mu.RLock()
	defer broadcaster.mu.RUnlock()

	for sub := range broadcaster.subscribers {
		select {
		case sub <- e:
		default:
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func SubscriberCount() int {
	broadcaster.mu.RLock()
	defer broadcaster.mu.RUnlock()
	return len(broadcaster.subscribers)
}

// RecentEvents returns the last n events from the ring buffer.
// If n is zero or exceeds the available events, all are returned.
func RecentEvents(n int) []Event {
	all := buffer.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
