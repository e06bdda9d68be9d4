package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard page and the API share an origin in production;
		// local tooling connects from anywhere.
		return true
	},
}

// eventHub tracks websocket subscribers and fans events out to them.
type eventHub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *eventHub) add(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[conn] = struct{}{}
	return true
}

func (h *eventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// Broadcast sends the event to every subscriber, dropping connections
// that fail to accept it.
func (h *eventHub) Broadcast(event Event) {
	log := logger.Sugar()
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(event); err != nil {
			log.Warnw("dropping event subscriber", "error", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

func (h *eventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}

// Events upgrades the request to a websocket and streams reload events
// until the peer goes away.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	log := logger.Sugar()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorw("websocket upgrade failed", "error", err)
		return
	}
	if !h.events.add(conn) {
		conn.Close()
		return
	}
	defer h.events.remove(conn)

	// Subscribers only listen; the read loop exists to notice the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
