package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gimelstudio/gsnodes/internal/events"
)

const (
	// Events replayed to a client when it connects.
	recentEventsCount = 50

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second // must be less than pongWait
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Editors connect from the desktop shell and local tools.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// encodeErrLogged is set after the first event that cannot be encoded.
var encodeErrLogged atomic.Bool

// writeEvent sends e to the client. An event that cannot be encoded is
// skipped, and the first such failure is logged.
func writeEvent(conn *websocket.Conn, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		if encodeErrLogged.CompareAndSwap(false, true) {
			log.Printf("ws: dropping unencodable %s event: %v", e.Name, err)
		}
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// wsEventsHandler streams node events to a websocket client.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	sub := events.Subscribe()
	closeAll := func() {
		events.Unsubscribe(sub)
		conn.Close()
	}

	for _, e := range events.RecentEvents(recentEventsCount) {
		if err := writeEvent(conn, e); err != nil {
			log.Printf("ws write recent event failed: %v", err)
			closeAll()
			return
		}
	}

	// The reader only services pongs and notices the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			closeAll()
			return

		case e, ok := <-sub:
			if !ok {
				// Closed by CloseAllSubscribers on shutdown.
				conn.Close()
				return
			}
			if err := writeEvent(conn, e); err != nil {
				log.Printf("ws write event failed: %v", err)
				closeAll()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				closeAll()
				return
			}
		}
	}
}
