package simon

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hwalther/lightson/internal/logger"
)

// Event is pushed to connected browsers so a UI knows when a round has
// been scheduled and when the playback animation has finished.
type Event struct {
	Type    string `json:"type"`
	Length  int    `json:"length,omitempty"`
	Correct *bool  `json:"correct,omitempty"`
}

const (
	// EventRound is emitted when a round is requested
	EventRound = "round"
	// EventVerdict is emitted after a submission has been checked
	EventVerdict = "verdict"
	// EventPlaybackDone is emitted when a playback animation finishes
	EventPlaybackDone = "playback_done"
)

// Hub broadcasts game events to websocket clients. Writes are serialized
// under the hub mutex; a client whose write fails is dropped.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Add registers a client connection
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	count := len(h.conns)
	h.mu.Unlock()
	logger.WithComponent("simon").Debug().Int("clients", count).Msg("Event client connected")
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Remove unregisters a client connection
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

// Broadcast sends an event to every connected client
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(ev); err != nil {
			conn.Close()
			delete(h.conns, conn)
		}
	}
}
