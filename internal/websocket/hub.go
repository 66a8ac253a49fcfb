package websocket

import (
	"fmt"
	"sync"

	"dm-relay/internal/errs"
	"dm-relay/internal/models"
	"dm-relay/internal/presence"
	"dm-relay/pkg/logger"
)

// Hub tracks open connections and fans events out to their write pumps.
// A client whose send buffer is full is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[presence.ConnectionID]*Client
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[presence.ConnectionID]*Client),
	}
}

// Register adds c. After Shutdown the client is closed immediately.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(c.send)
		return
	}
	h.clients[c.id] = c
}

// Unregister removes c and closes its send channel. Calling it for a client
// that was already removed does nothing.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) bool {
	if current, ok := h.clients[c.id]; !ok || current != c {
		return false
	}
	delete(h.clients, c.id)
	close(c.send)
	return true
}

// Notify sends one event to one connection.
func (h *Hub) Notify(id presence.ConnectionID, event models.EventName, payload any) error {
	frame, err := models.NewEnvelope(event, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	c, ok := h.clients[id]
	if !ok {
		h.mu.RUnlock()
		return fmt.Errorf("%w: %s", errs.ErrConnectionNotFound, id)
	}
	delivered := c.enqueue(frame)
	h.mu.RUnlock()

	if !delivered {
		h.drop(c)
		return fmt.Errorf("%w: %s send buffer full", errs.ErrConnectionNotFound, id)
	}
	return nil
}

// Broadcast sends one event to every open connection.
func (h *Hub) Broadcast(event models.EventName, payload any) {
	frame, err := models.NewEnvelope(event, payload)
	if err != nil {
		l := logger.L()
		l.Error().Err(err).Str(logger.FieldEvent, string(event)).Msg("failed to encode broadcast")
		return
	}

	var slow []*Client
	h.mu.RLock()
	for _, c := range h.clients {
		if !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	h.mu.Unlock()

	if removed {
		l := logger.L()
		l.Warn().Str(logger.FieldConnID, string(c.id)).Msg("dropping slow client")
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Shutdown closes every client. Their write pumps send a close frame and
// their read pumps then run the normal disconnect path.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}
