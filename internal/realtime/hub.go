// Package realtime pushes friend events to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

var ErrHubStopped = errors.New("realtime hub stopped")

type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub tracks the open connections of each user. A user may hold several.
type Hub struct {
	userConns  map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		userConns:  make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

// Run services registrations until ctx is done, then closes every client.
// Connections arriving after that are refused with ErrHubStopped.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.userConns[client.UserID] == nil {
				h.userConns[client.UserID] = make(map[*Client]bool)
			}
			h.userConns[client.UserID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			h.mu.Lock()
			for userID, clients := range h.userConns {
				for client := range clients {
					close(client.Send)
				}
				delete(h.userConns, userID)
			}
			h.mu.Unlock()
			log.Println("Realtime hub stopped")
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.userConns[client.UserID]
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.userConns, client.UserID)
	}
	close(client.Send)
}

// SendToUser queues msg on every connection of userID and returns how many
// connections accepted it. Connections with a full buffer are dropped.
func (h *Hub) SendToUser(userID uuid.UUID, msg *Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("SendToUser: failed to marshal %s: %v", msg.Event, err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.userConns[userID] {
		select {
		case client.Send <- data:
			delivered++
		default:
			select {
			case h.unregister <- client:
			default:
			}
		}
	}
	return delivered
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}
