// engine/broadcast/hub.go
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout  = 5 * time.Second
	sendQueueSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The HUD is served from a different origin than the engine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans game events out to websocket subscribers. It implements the
// same Broadcaster contract as the Redis publisher, so the engine can feed
// locally connected HUDs directly.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[*subscriber]struct{})}
}

// ServeWS upgrades an HTTP request to a websocket subscription.
// GET /ws
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARN: Websocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendQueueSize)}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()
	log.Printf("INFO: Websocket subscriber connected (%d total).", count)

	go h.writeLoop(sub)
	go h.readLoop(sub)
}

// writeLoop drains the subscriber's send queue onto the wire.
func (h *Hub) writeLoop(sub *subscriber) {
	for data := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(sub)
			return
		}
	}
	sub.conn.Close()
}

// readLoop discards inbound frames; its job is detecting disconnects.
func (h *Hub) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.drop(sub)
			return
		}
	}
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	_, present := h.subscribers[sub]
	if present {
		delete(h.subscribers, sub)
		close(sub.send)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	if present {
		sub.conn.Close()
		log.Printf("INFO: Websocket subscriber disconnected (%d left).", count)
	}
}

// Publish implements events.Broadcaster. Slow subscribers whose queue is
// full are dropped rather than allowed to stall the game loop.
func (h *Hub) Publish(ctx context.Context, channel, event string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for event %s: %w", event, err)
	}
	data, err := json.Marshal(Envelope{Event: event, Payload: payloadJSON})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope for event %s: %w", event, err)
	}

	h.mu.Lock()
	var stalled []*subscriber
	for sub := range h.subscribers {
		select {
		case sub.send <- data:
		default:
			stalled = append(stalled, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range stalled {
		log.Printf("WARN: Dropping stalled websocket subscriber.")
		h.drop(sub)
	}
	return nil
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.drop(sub)
	}
}
