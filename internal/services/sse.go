package services

import (
	"sync"
	"time"

	"github.com/impactbridge/marketplace/internal/metrics"
	"github.com/shopspring/decimal"
)

// DonationEvent is pushed to live subscribers whenever a donation is booked.
type DonationEvent struct {
	DonationID   uint            `json:"donationId"`
	ProjectID    uint            `json:"projectId"`
	Amount       decimal.Decimal `json:"amount"`
	ProjectTotal decimal.Decimal `json:"projectTotal"`
	Source       string          `json:"source"` // api, webhook
	At           time.Time       `json:"at"`
}

// SSEHub manages SSE client connections and event broadcasting
type SSEHub struct {
	clients map[string]chan DonationEvent
	mu      sync.RWMutex
}

func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]chan DonationEvent),
	}
}

// Subscribe registers a new client and returns a channel for receiving events
func (h *SSEHub) Subscribe(clientID string) <-chan DonationEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan DonationEvent, 64)
	h.clients[clientID] = ch
	metrics.SetSSEClients(len(h.clients))
	return ch
}

// Unsubscribe removes a client from the hub and closes its channel.
func (h *SSEHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
	metrics.SetSSEClients(len(h.clients))
}

// Publish broadcasts an event to all connected clients. Clients whose buffer
// is full miss the event.
func (h *SSEHub) Publish(event DonationEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

// ClientCount returns the number of connected clients
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
