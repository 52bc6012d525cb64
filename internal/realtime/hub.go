package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/scribe-backend/internal/platform/logger"
)

// SSEHub fans session events out to every client subscribed to that session's
// channel. Slow clients drop messages instead of blocking the hub.
type SSEHub struct {
	mu      sync.RWMutex
	log     *logger.Logger
	clients map[uuid.UUID]*SSEClient
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		log:     log.With("service", "SSEHub"),
		clients: map[uuid.UUID]*SSEClient{},
	}
}

func (h *SSEHub) NewSSEClient(actor string) *SSEClient {
	c := &SSEClient{
		ID:       uuid.New(),
		Actor:    actor,
		Channels: map[string]bool{},
		Outbound: make(chan SSEMessage, 64),
		done:     make(chan struct{}),
		Logger:   h.log,
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	return c
}

func (h *SSEHub) AddChannel(c *SSEClient, channel string) {
	if c == nil || channel == "" {
		return
	}
	h.mu.Lock()
	c.Channels[channel] = true
	h.mu.Unlock()
}

func (h *SSEHub) RemoveChannel(c *SSEClient, channel string) {
	if c == nil || channel == "" {
		return
	}
	h.mu.Lock()
	delete(c.Channels, channel)
	h.mu.Unlock()
}

func (h *SSEHub) Broadcast(msg SSEMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if msg.Channel != "" && !c.Channels[msg.Channel] {
			continue
		}
		select {
		case c.Outbound <- msg:
		case <-c.done:
		default:
			h.log.Warn("dropping SSE message for slow client", "client_id", c.ID.String(), "event", msg.Event)
		}
	}
}

func (h *SSEHub) CloseClient(c *SSEClient) {
	if c == nil {
		return
	}
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.done)
		close(c.Outbound)
	}
	h.mu.Unlock()
}

func (h *SSEHub) Done(c *SSEClient) <-chan struct{} {
	if c == nil {
		return nil
	}
	return c.done
}
